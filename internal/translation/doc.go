// Package translation defines the boundary for translating recognized text
// fragments between languages. It abstracts the details of the translation
// service (Gemini) so the rest of the application depends only on the
// Translator interface.
package translation
