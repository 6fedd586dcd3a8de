// Package format renders log events as text using output templates such as
// "{Timestamp:HH:mm:ss} [{Level:u3}] {Message}{NewLine}{Exception}".
//
// Built-in output properties are Timestamp, Level, Message, NewLine,
// Exception and Properties; any other hole is looked up in the event's
// properties. Message templates use the same hole syntax, where {@Name}
// renders the value as JSON, {$Name} forces string rendering and string
// values are quoted unless the :l format is given.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/Chichichkin/HipChatSink/internal/logging"
)

const DefaultOutputTemplate = "{Timestamp:yyyy-MM-dd HH:mm:ss.fff zzz} [{Level}] {Message}{NewLine}{Exception}"

const newLine = "\n"

const (
	timestampProperty  = "Timestamp"
	levelProperty      = "Level"
	messageProperty    = "Message"
	newLineProperty    = "NewLine"
	exceptionProperty  = "Exception"
	propertiesProperty = "Properties"
)

// TemplateFormatter implements logging.Formatter. It is safe for concurrent use.
type TemplateFormatter struct {
	tokens []token
	// locale is nil when values are rendered culture-invariantly.
	locale *message.Printer
	// grouping renders N formats; it follows locale when one is set.
	grouping *message.Printer
}

// New parses outputTemplate. An empty template selects DefaultOutputTemplate
// and language.Und keeps number rendering culture-invariant.
func New(outputTemplate string, locale language.Tag) *TemplateFormatter {
	if outputTemplate == "" {
		outputTemplate = DefaultOutputTemplate
	}
	f := &TemplateFormatter{
		tokens:   parse(outputTemplate),
		grouping: message.NewPrinter(language.English),
	}
	if locale != language.Und {
		f.locale = message.NewPrinter(locale)
		f.grouping = f.locale
	}
	return f
}

func (f *TemplateFormatter) Format(w io.Writer, event logging.LogEvent) error {
	_, err := io.WriteString(w, f.Render(event))
	return err
}

func (f *TemplateFormatter) Render(event logging.LogEvent) string {
	var b strings.Builder
	for _, tok := range f.tokens {
		if !tok.hole {
			b.WriteString(tok.text)
			continue
		}
		b.WriteString(pad(f.renderOutputHole(tok, event), tok.alignment))
	}
	return b.String()
}

func (f *TemplateFormatter) renderOutputHole(tok token, event logging.LogEvent) string {
	switch tok.name {
	case timestampProperty:
		return formatTime(event.Timestamp, tok.format)
	case levelProperty:
		return formatLevel(event.Level, tok.format)
	case messageProperty:
		return f.renderMessage(event, tok.format == "l")
	case newLineProperty:
		return newLine
	case exceptionProperty:
		if event.Err == nil {
			return ""
		}
		return fmt.Sprintf("%+v", event.Err) + newLine
	case propertiesProperty:
		return f.renderProperties(event)
	}

	value, ok := event.Properties[tok.name]
	if !ok {
		return ""
	}
	return f.renderValue(value, tok, false)
}

func (f *TemplateFormatter) renderMessage(event logging.LogEvent, literal bool) string {
	var b strings.Builder
	for _, tok := range parse(event.MessageTemplate) {
		if !tok.hole {
			b.WriteString(tok.text)
			continue
		}
		value, ok := event.Properties[tok.name]
		if !ok {
			b.WriteString(tok.raw)
			continue
		}
		b.WriteString(pad(f.renderValue(value, tok, !literal), tok.alignment))
	}
	return b.String()
}

// renderProperties lists the properties not already shown by the message.
func (f *TemplateFormatter) renderProperties(event logging.LogEvent) string {
	shown := map[string]struct{}{}
	for _, tok := range parse(event.MessageTemplate) {
		if tok.hole {
			shown[tok.name] = struct{}{}
		}
	}
	for _, tok := range f.tokens {
		if tok.hole {
			shown[tok.name] = struct{}{}
		}
	}

	keys := make([]string, 0, len(event.Properties))
	for k := range event.Properties {
		if _, ok := shown[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+f.renderValue(event.Properties[k], token{}, true))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (f *TemplateFormatter) renderValue(value any, tok token, quoteStrings bool) string {
	if value == nil {
		return "null"
	}
	if tok.format == "l" {
		quoteStrings = false
	}

	switch tok.destructure {
	case '@':
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(data)
	case '$':
		return quote(fmt.Sprint(value), quoteStrings)
	}

	switch v := value.(type) {
	case string:
		return quote(v, quoteStrings)
	case time.Time:
		return formatTime(v, tok.format)
	case error:
		return quote(v.Error(), quoteStrings)
	case fmt.Stringer:
		return quote(v.String(), quoteStrings)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return f.formatNumber(v, tok.format)
	}
	return fmt.Sprint(value)
}

// maxPrecision bounds the digit count a template may ask for.
const maxPrecision = 99

// formatNumber supports the N (grouped), F (fixed) and X (hex) specifiers with
// an optional precision; anything else renders the plain value.
func (f *TemplateFormatter) formatNumber(v any, spec string) string {
	kind, precision := "", -1
	if spec != "" {
		kind = strings.ToUpper(spec[:1])
		if p, err := strconv.Atoi(spec[1:]); err == nil && p >= 0 {
			precision = min(p, maxPrecision)
		}
	}

	switch kind {
	case "N":
		if precision < 0 {
			precision = 2
		}
		return f.grouping.Sprint(number.Decimal(v,
			number.MinFractionDigits(precision), number.MaxFractionDigits(precision)))
	case "F":
		if precision < 0 {
			precision = 2
		}
		if f.locale != nil {
			return f.locale.Sprint(number.Decimal(v, number.NoSeparator(),
				number.MinFractionDigits(precision), number.MaxFractionDigits(precision)))
		}
		return fmt.Sprintf("%.*f", precision, toFloat(v))
	case "X":
		s := fmt.Sprintf("%X", v)
		if spec[:1] == "x" {
			s = strings.ToLower(s)
		}
		if precision > len(s) {
			s = strings.Repeat("0", precision-len(s)) + s
		}
		return s
	}

	if f.locale != nil {
		return f.locale.Sprint(number.Decimal(v, number.NoSeparator(), number.MaxFractionDigits(15)))
	}
	return fmt.Sprint(v)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func quote(s string, enabled bool) string {
	if !enabled {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

var levelMonikers = map[logging.Level]string{
	logging.Verbose:     "VRB",
	logging.Debug:       "DBG",
	logging.Information: "INF",
	logging.Warning:     "WRN",
	logging.Error:       "ERR",
	logging.Fatal:       "FTL",
}

// formatLevel handles u3/w3 monikers and u/w casing of the full name.
func formatLevel(level logging.Level, spec string) string {
	name := level.String()
	switch spec {
	case "u3":
		if m, ok := levelMonikers[level]; ok {
			return m
		}
		return strings.ToUpper(name)
	case "w3":
		if m, ok := levelMonikers[level]; ok {
			return strings.ToLower(m)
		}
		return strings.ToLower(name)
	case "u":
		return strings.ToUpper(name)
	case "w":
		return strings.ToLower(name)
	}
	return name
}
