package format

import (
	"fmt"
	"strings"
	"time"
)

const defaultTimestampFormat = "yyyy-MM-dd HH:mm:ss.fff zzz"

// formatTime renders t using .NET-style custom date and time format
// specifiers, which is what output templates are written in.
func formatTime(t time.Time, f string) string {
	switch f {
	case "":
		f = defaultTimestampFormat
	case "o", "O":
		f = "yyyy-MM-ddTHH:mm:ss.fffffffzzz"
	case "s":
		f = "yyyy-MM-ddTHH:mm:ss"
	case "u":
		t = t.UTC()
		f = "yyyy-MM-dd HH:mm:ss'Z'"
	}

	var b strings.Builder
	for i := 0; i < len(f); {
		c := f[i]
		n := 1
		for i+n < len(f) && f[i+n] == c {
			n++
		}

		switch c {
		case 'y':
			switch {
			case n == 1:
				fmt.Fprintf(&b, "%d", t.Year()%100)
			case n == 2:
				fmt.Fprintf(&b, "%02d", t.Year()%100)
			default:
				fmt.Fprintf(&b, "%0*d", n, t.Year())
			}
		case 'M':
			switch n {
			case 1:
				fmt.Fprintf(&b, "%d", int(t.Month()))
			case 2:
				fmt.Fprintf(&b, "%02d", int(t.Month()))
			case 3:
				b.WriteString(t.Month().String()[:3])
			default:
				b.WriteString(t.Month().String())
			}
		case 'd':
			switch n {
			case 1:
				fmt.Fprintf(&b, "%d", t.Day())
			case 2:
				fmt.Fprintf(&b, "%02d", t.Day())
			case 3:
				b.WriteString(t.Weekday().String()[:3])
			default:
				b.WriteString(t.Weekday().String())
			}
		case 'H':
			writeNumber(&b, t.Hour(), n)
		case 'h':
			h := t.Hour() % 12
			if h == 0 {
				h = 12
			}
			writeNumber(&b, h, n)
		case 'm':
			writeNumber(&b, t.Minute(), n)
		case 's':
			writeNumber(&b, t.Second(), n)
		case 'f', 'F':
			digits := min(n, 9)
			frac := fmt.Sprintf("%09d", t.Nanosecond())[:digits]
			if c == 'F' {
				frac = strings.TrimRight(frac, "0")
				if frac == "" && b.Len() > 0 && strings.HasSuffix(b.String(), ".") {
					// drop the separator along with an all-zero fraction
					trimmed := strings.TrimSuffix(b.String(), ".")
					b.Reset()
					b.WriteString(trimmed)
				}
			}
			b.WriteString(frac)
		case 't':
			ampm := "AM"
			if t.Hour() >= 12 {
				ampm = "PM"
			}
			if n == 1 {
				ampm = ampm[:1]
			}
			b.WriteString(ampm)
		case 'z':
			_, offset := t.Zone()
			sign := '+'
			if offset < 0 {
				sign = '-'
				offset = -offset
			}
			hours, minutes := offset/3600, (offset%3600)/60
			switch n {
			case 1:
				fmt.Fprintf(&b, "%c%d", sign, hours)
			case 2:
				fmt.Fprintf(&b, "%c%02d", sign, hours)
			default:
				fmt.Fprintf(&b, "%c%02d:%02d", sign, hours, minutes)
			}
		case '\'', '"':
			end := strings.IndexByte(f[i+1:], c)
			if end < 0 {
				b.WriteString(f[i+1:])
				return b.String()
			}
			b.WriteString(f[i+1 : i+1+end])
			i += end + 2
			continue
		case '\\':
			if i+1 < len(f) {
				b.WriteByte(f[i+1])
			}
			i += 2
			continue
		default:
			b.WriteString(f[i : i+n])
		}
		i += n
	}

	return b.String()
}

func writeNumber(b *strings.Builder, v, width int) {
	if width >= 2 {
		fmt.Fprintf(b, "%02d", v)
		return
	}
	fmt.Fprintf(b, "%d", v)
}
