package telegram

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pfrederiksen/high-lakes/internal/lake"
)

// MaxMessageLength is the Bot API limit for a message text
const MaxMessageLength = 4096

const (
	digestTitle     = "🎣 <b>New high lake fish plants</b>"
	continuedHeader = digestTitle + " (continued)\n\n"
)

// FormatDigest formats new plants as digest messages grouped by county and lake.
// Every message is at most MaxMessageLength bytes. Lake sections move to the next message
// whole when they fit there; longer sections are split between plant lines.
func FormatDigest(plants []*lake.NewPlant) []string {
	if len(plants) == 0 {
		return nil
	}

	d := &digest{}
	d.begin(fmt.Sprintf("%s\n%d new plant%s\n\n", digestTitle, len(plants), pluralize(len(plants))))

	for _, section := range lakeSections(plants) {
		if !d.fits(section) && d.hasBody() {
			d.flush()
		}
		if d.fits(section) {
			d.msg.WriteString(section)
			continue
		}

		lines := strings.SplitAfter(strings.TrimSuffix(section, "\n"), "\n")
		title := lines[0]
		for i, line := range lines {
			if line == "" {
				continue
			}
			if !d.fits(line) && d.hasBody() && len(continuedHeader)+len(title)+len(line) <= MaxMessageLength {
				d.flush()
				if i > 0 && d.fits(title) {
					d.msg.WriteString(title)
				}
			}
			if !d.fits(line) {
				line = cutLine(line, MaxMessageLength-d.msg.Len())
			}
			if i == 0 {
				title = line
			}
			d.msg.WriteString(line)
		}
		if d.fits("\n") {
			d.msg.WriteString("\n")
		}
	}
	return d.finish()
}

// digest accumulates messages for FormatDigest
type digest struct {
	messages  []string
	msg       strings.Builder
	headerLen int
}

func (d *digest) begin(header string) {
	d.msg.Reset()
	d.msg.WriteString(header)
	d.headerLen = len(header)
}

func (d *digest) fits(s string) bool {
	return d.msg.Len()+len(s) <= MaxMessageLength
}

func (d *digest) hasBody() bool {
	return d.msg.Len() > d.headerLen
}

func (d *digest) flush() {
	d.messages = append(d.messages, strings.TrimRight(d.msg.String(), "\n"))
	d.begin(continuedHeader)
}

func (d *digest) finish() []string {
	if d.hasBody() || len(d.messages) == 0 {
		d.messages = append(d.messages, strings.TrimRight(d.msg.String(), "\n"))
	}
	return d.messages
}

// cutLine shortens line to at most n bytes, keeping its newline. The cut never splits a
// UTF-8 sequence, an HTML entity or a tag.
func cutLine(line string, n int) string {
	n--
	if n <= 0 {
		return ""
	}
	for n > 0 && !utf8.RuneStart(line[n]) {
		n--
	}
	cut := line[:n]
	if amp := strings.LastIndexByte(cut, '&'); amp > strings.LastIndexByte(cut, ';') {
		cut = cut[:amp]
	}
	if lt := strings.LastIndexByte(cut, '<'); lt > strings.LastIndexByte(cut, '>') {
		cut = cut[:lt]
	}
	return cut + "\n"
}

// lakeSections renders one block of text per lake, ordered by county then lake name
func lakeSections(plants []*lake.NewPlant) []string {
	type group struct {
		lake   *lake.Lake
		plants []*lake.Plant
	}

	byLake := make(map[string]*group)
	for _, np := range plants {
		g, ok := byLake[np.Lake.ID]
		if !ok {
			g = &group{lake: np.Lake}
			byLake[np.Lake.ID] = g
		}
		g.plants = append(g.plants, np.Plant)
	}

	groups := make([]*group, 0, len(byLake))
	for _, g := range byLake {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].lake.County != groups[j].lake.County {
			return groups[i].lake.County < groups[j].lake.County
		}
		return groups[i].lake.Name < groups[j].lake.Name
	})

	sections := make([]string, 0, len(groups))
	for _, g := range groups {
		var b strings.Builder
		name := html.EscapeString(g.lake.Name)
		if g.lake.URL != "" {
			name = fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(g.lake.URL), name)
		}
		fmt.Fprintf(&b, "📍 <b>%s</b> (%s County)\n", name, html.EscapeString(g.lake.County))

		for _, p := range g.plants {
			b.WriteString("  • ")
			if p.Date != "" {
				b.WriteString(html.EscapeString(p.Date) + ": ")
			}
			if p.Number != "" {
				b.WriteString(html.EscapeString(p.Number) + " ")
			}
			b.WriteString(html.EscapeString(p.Species))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		sections = append(sections, b.String())
	}
	return sections
}

func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
