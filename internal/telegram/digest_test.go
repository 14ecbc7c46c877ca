package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pfrederiksen/high-lakes/internal/lake"
)

func newPlant(lakeName, county, date, species string) *lake.NewPlant {
	l := lake.NewLake(lakeName, "https://wdfw.wa.gov/fishing/locations/high-lakes/x", "", "", county, "", "")
	p := &lake.Plant{Date: date, Species: species, Number: "500"}
	l.AddPlant(p)
	return &lake.NewPlant{Lake: l, Plant: p}
}

func TestFormatDigest(t *testing.T) {
	if got := FormatDigest(nil); got != nil {
		t.Errorf("FormatDigest(nil) = %v, want nil", got)
	}

	blue := newPlant("Blue Lake", "Okanogan", "08/10/2025", "Rainbow")
	colchuck := newPlant("Colchuck Lake", "Chelan", "08/12/2025", "Westslope Cutthroat")
	second := &lake.NewPlant{Lake: colchuck.Lake, Plant: &lake.Plant{Date: "08/01/2025", Species: "Golden Trout"}}

	msgs := FormatDigest([]*lake.NewPlant{blue, colchuck, second})
	if len(msgs) != 1 {
		t.Fatalf("FormatDigest() returned %d messages, want 1", len(msgs))
	}
	msg := msgs[0]

	for _, want := range []string{
		"3 new plants",
		"(Chelan County)",
		"• 08/12/2025: 500 Westslope Cutthroat",
		"• 08/01/2025: Golden Trout",
		`<a href="https://wdfw.wa.gov/fishing/locations/high-lakes/x">`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("digest missing %q:\n%s", want, msg)
		}
	}

	// Chelan sorts before Okanogan
	if strings.Index(msg, "Colchuck Lake") > strings.Index(msg, "Blue Lake") {
		t.Errorf("sections not ordered by county:\n%s", msg)
	}
}

func TestFormatDigest_EscapesHTML(t *testing.T) {
	msgs := FormatDigest([]*lake.NewPlant{newPlant("Lake <Unnamed> & Co", "Chelan", "", "Rainbow")})
	if !strings.Contains(msgs[0], "Lake &lt;Unnamed&gt; &amp; Co") {
		t.Errorf("lake name not escaped:\n%s", msgs[0])
	}
}

func TestFormatDigest_SplitsLongDigests(t *testing.T) {
	var plants []*lake.NewPlant
	for i := 0; i < 200; i++ {
		plants = append(plants, newPlant(strings.Repeat("Lake ", 5)+string(rune('A'+i%26))+string(rune('a'+i/26)), "Chelan", "08/12/2025", "Westslope Cutthroat"))
	}

	msgs := FormatDigest(plants)
	if len(msgs) < 2 {
		t.Fatalf("FormatDigest() returned %d messages, want a split digest", len(msgs))
	}
	for i, m := range msgs {
		if len(m) > MaxMessageLength {
			t.Errorf("message %d has %d bytes, over the limit", i, len(m))
		}
		if !utf8.ValidString(m) {
			t.Errorf("message %d is not valid UTF-8", i)
		}
	}
	if !strings.Contains(msgs[1], "(continued)") {
		t.Errorf("second message should be marked as continued")
	}
}

func TestFormatDigest_SplitsLongLakeSection(t *testing.T) {
	colchuck := lake.NewLake("Colchuck Lake", "https://wdfw.wa.gov/fishing/locations/high-lakes/colchuck-lake", "", "", "Chelan", "", "")
	var plants []*lake.NewPlant
	for i := 0; i < 60; i++ {
		p := &lake.Plant{
			Date:    "08/12/2025",
			Species: strings.Repeat("Westslope Cutthroat ", 4) + string(rune('A'+i%26)),
			Number:  strings.Repeat("1", i%5+1),
		}
		colchuck.AddPlant(p)
		plants = append(plants, &lake.NewPlant{Lake: colchuck, Plant: p})
	}

	msgs := FormatDigest(plants)
	if len(msgs) < 2 {
		t.Fatalf("FormatDigest() returned %d messages, want the section split", len(msgs))
	}

	lines := 0
	for i, m := range msgs {
		if len(m) > MaxMessageLength {
			t.Errorf("message %d has %d bytes, over the limit", i, len(m))
		}
		if !strings.Contains(m, "Colchuck Lake</a></b> (Chelan County)") {
			t.Errorf("message %d does not name the lake", i)
		}
		if i > 0 && !strings.Contains(m, "(continued)") {
			t.Errorf("message %d should be marked as continued", i)
		}
		lines += strings.Count(m, "  • ")
	}
	if lines != 60 {
		t.Errorf("digest lists %d plants, want 60", lines)
	}
}

func TestFormatDigest_CutsOverlongLine(t *testing.T) {
	np := newPlant("Blue Lake", "Okanogan", "08/10/2025", strings.Repeat("é&", 3000))

	msgs := FormatDigest([]*lake.NewPlant{np})
	for i, m := range msgs {
		if len(m) > MaxMessageLength {
			t.Errorf("message %d has %d bytes, over the limit", i, len(m))
		}
		if !utf8.ValidString(m) {
			t.Errorf("message %d is not valid UTF-8", i)
		}
		if strings.HasSuffix(m, "&") || strings.HasSuffix(m, "&amp") {
			t.Errorf("message %d ends inside an HTML entity", i)
		}
	}
}

func TestCutLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		n    int
		want string
	}{
		{"ascii", "abcdef\n", 4, "abc\n"},
		{"multibyte", "aé\n", 3, "a\n"},
		{"entity", "a &amp; b\n", 6, "a \n"},
		{"tag", "x <b>y</b>\n", 5, "x \n"},
		{"no room", "abc\n", 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cutLine(tt.line, tt.n); got != tt.want {
				t.Errorf("cutLine(%q, %d) = %q, want %q", tt.line, tt.n, got, tt.want)
			}
		})
	}
}
