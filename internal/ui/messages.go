package ui

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Status message keys.
const (
	keyRequesting  = "requesting permission"
	keyCapturing   = "capturing"
	keyDenied      = "permission denied"
	keyEnded       = "capture ended"
	keyError       = "capture error: %s"
	keyUnsupported = "unsupported"
)

var supportedLocales = []language.Tag{
	language.English, // first entry is the fallback
	language.BrazilianPortuguese,
}

var (
	localeMatcher = language.NewMatcher(supportedLocales)
	statusCatalog = buildCatalog()
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	set := func(tag language.Tag, key, msg string) {
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}

	set(language.English, keyRequesting, "Requesting permission...")
	set(language.English, keyCapturing, "Permission granted. Capturing audio...")
	set(language.English, keyDenied, "Microphone permission denied.")
	set(language.English, keyEnded, "Audio capture ended.")
	set(language.English, keyError, "Error accessing the microphone: %s")
	set(language.English, keyUnsupported, "Audio capture is not supported on this host.")

	set(language.BrazilianPortuguese, keyRequesting, "Solicitando permissão...")
	set(language.BrazilianPortuguese, keyCapturing, "Permissão concedida. Capturando áudio...")
	set(language.BrazilianPortuguese, keyDenied, "Permissão de microfone negada.")
	set(language.BrazilianPortuguese, keyEnded, "Captura de áudio encerrada.")
	set(language.BrazilianPortuguese, keyError, "Erro ao acessar o microfone: %s")
	set(language.BrazilianPortuguese, keyUnsupported, "A captura de áudio não é suportada neste computador.")

	return b
}

// Messages renders the fixed set of status strings in one locale.
type Messages struct {
	printer *message.Printer
}

// NewMessages returns messages for the best match of locale (a BCP 47 tag
// such as "pt-BR"). Unknown or empty locales fall back to English.
func NewMessages(locale string) *Messages {
	tag := language.English
	if locale != "" {
		if desired, err := language.Parse(locale); err == nil {
			_, idx, _ := localeMatcher.Match(desired)
			tag = supportedLocales[idx]
		}
	}
	return &Messages{
		printer: message.NewPrinter(tag, message.Catalog(statusCatalog)),
	}
}

func (m *Messages) RequestingPermission() string { return m.printer.Sprintf(keyRequesting) }
func (m *Messages) Capturing() string            { return m.printer.Sprintf(keyCapturing) }
func (m *Messages) PermissionDenied() string     { return m.printer.Sprintf(keyDenied) }
func (m *Messages) CaptureEnded() string         { return m.printer.Sprintf(keyEnded) }
func (m *Messages) Unsupported() string          { return m.printer.Sprintf(keyUnsupported) }

// CaptureError is the generic failure status followed by description.
func (m *Messages) CaptureError(description string) string {
	return m.printer.Sprintf(keyError, description)
}
