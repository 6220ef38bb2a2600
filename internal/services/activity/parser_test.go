package activity

import (
    "reflect"
    "testing"
)

func TestClassify(t *testing.T) {
    t.Parallel()

    cases := []struct {
        name  string
        texts []string
        want  bool
    }{
        {"hours", []string{"2h ago"}, true},
        {"months", []string{"3mo ago"}, false},
        {"empty", nil, false},
        {"any hit", []string{"1w", "5y"}, true},
        {"minutes", []string{"Posted 45m • Visible to anyone"}, true},
        {"days multi digit", []string{"12d"}, true},
        {"years only", []string{"5y", "2yr", "1mo"}, false},
        {"spelled out", []string{"2 hours ago"}, false},
        {"no numeral", []string{"h ago", "w"}, false},
        {"embedded bullet", []string{"3d•"}, true},
        {"blank strings", []string{"", "  "}, false},
    }
    p := NewParser(DefaultUnits)
    for _, tc := range cases {
        if got := p.Classify(tc.texts); got != tc.want {
            t.Fatalf("%s: Classify(%q) = %v, want %v", tc.name, tc.texts, got, tc.want)
        }
    }
}

func TestNewParserUnits(t *testing.T) {
    t.Parallel()

    p := NewParser("hd")
    if p.Units() != "hd" {
        t.Fatalf("unexpected units %q", p.Units())
    }
    if p.Match("1w") {
        t.Fatalf("week should not match an hour/day parser")
    }
    if !p.Match("3d") {
        t.Fatalf("day should match")
    }

    if got := NewParser("").Units(); got != DefaultUnits {
        t.Fatalf("empty units should fall back to default, got %q", got)
    }
    if got := NewParser("]^h\\h").Units(); got != "h" {
        t.Fatalf("invalid runes should be dropped, got %q", got)
    }
}

func TestHits(t *testing.T) {
    t.Parallel()

    got := NewParser(DefaultUnits).Hits([]string{"4h", "2mo", "1w"})
    if !reflect.DeepEqual(got, []string{"4h", "1w"}) {
        t.Fatalf("unexpected hits %v", got)
    }
}
