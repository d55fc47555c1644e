package cms

// Language is one configured content language.
type Language struct {
	Code    string
	Name    string
	Default bool
}

// Languages is the ordered set of configured languages. An empty set
// means the site runs in single-language mode.
type Languages []*Language

// Find returns the language with the given code, or nil.
func (l Languages) Find(code string) *Language {
	for _, lang := range l {
		if lang.Code == code {
			return lang
		}
	}
	return nil
}

// Default returns the default language: the one flagged Default, or the
// first configured one.
func (l Languages) Default() *Language {
	for _, lang := range l {
		if lang.Default {
			return lang
		}
	}
	if len(l) > 0 {
		return l[0]
	}
	return nil
}

// Codes returns every language code in order.
func (l Languages) Codes() []string {
	codes := make([]string, len(l))
	for i, lang := range l {
		codes[i] = lang.Code
	}
	return codes
}
