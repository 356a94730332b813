package ansi

import "testing"

func TestStripRemovesSequences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"sgr", "\x1b[1;31mred\x1b[0m", "red"},
		{"cursor", "a\x1b[2Kb\x1b[10;5Hc", "abc"},
		{"private-mode", "\x1b[?25lhidden\x1b[?25h", "hidden"},
		{"osc-bel", "\x1b]0;title\x07text", "text"},
		{"osc-st", "\x1b]8;;http://x\x1b\\link\x1b]8;;\x1b\\", "link"},
		{"dcs", "\x1bPq#0;2;0;0;0\x1b\\after", "after"},
		{"charset", "\x1b(Bplain", "plain"},
		{"two-byte", "\x1b7saved\x1b8", "saved"},
		{"crlf", "one\r\ntwo\r\n", "one\ntwo\n"},
		{"lone-cr", "progress 10%\rprogress 20%", "progress 10%progress 20%"},
		{"controls", "bell\x07back\x08tab\tdone", "bellbacktab\tdone"},
		{"utf8", "\x1b[32m╭─ ⏺ Read(main.go)\x1b[0m", "╭─ ⏺ Read(main.go)"},
	}
	for _, tc := range cases {
		if got := Strip(tc.in); got != tc.want {
			t.Fatalf("%s: Strip(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestStripPassesMalformedThrough(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"truncated-csi", "text\x1b[12", "text\x1b[12"},
		{"lone-esc", "text\x1b", "text\x1b"},
		{"unterminated-osc", "a\x1b]0;title", "a\x1b]0;title"},
		{"bad-csi-byte", "\x1b[1\x01x", "\x1b[1\x01x"},
		{"esc-control", "\x1b\x01x", "\x1b\x01x"},
		{"csi-cr", "\x1b[2\rJok", "\x1b[2\rJok"},
		{"esc-high-byte", "\x1bé", "\x1bé"},
		{"esc-restarts", "\x1b\x1b[31mX", "X"},
		{"csi-restarts", "\x1b[2\x1b[31mJ", "J"},
	}
	for _, tc := range cases {
		if got := Strip(tc.in); got != tc.want {
			t.Fatalf("%s: Strip(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestStripIsIdempotent(t *testing.T) {
	inputs := []string{
		"plain text with $ and > glyphs",
		"\x1b[1mbold\x1b[0m\r\nnext line\r\n",
		"╭──────╮\n│ hi   │\n╰──────╯",
		"\x1b]0;t\x07\x1b[?1049hscreen\x1b[?1049l",
		"\x1b\x01[31mX",
		"\x1b[31\x18mX",
		"\x1b[2\rJok",
		"\x1b[2\r\nnext",
		"\x1b\x1b[31mX",
		"\x1b[2\x1b[31mJ",
		"\x1b(\x01B",
		"\x1bé[1m",
		"\x1b[1;\x7f2m",
		"text\x1b[12",
	}
	for _, in := range inputs {
		once := Strip(in)
		if twice := Strip(once); twice != once {
			t.Fatalf("Strip not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestStripPlainTextUnchanged(t *testing.T) {
	in := "user@host:~/src$ ls -la\nREADME.md\tgo.mod\n"
	if got := Strip(in); got != in {
		t.Fatalf("plain text changed: %q", got)
	}
}

func TestAltScreen(t *testing.T) {
	cases := []struct {
		in   string
		want AltScreenTransition
	}{
		{"plain", AltScreenNone},
		{"\x1b[?1049h", AltScreenEnter},
		{"\x1b[?1049l", AltScreenExit},
		{"\x1b[?47h", AltScreenEnter},
		{"\x1b[?1047l", AltScreenExit},
		{"\x1b[?1049h...\x1b[?1049l", AltScreenExit},
		{"\x1b[?1;1049h", AltScreenEnter},
		{"\x1b[?25h", AltScreenNone},
		{"\x1b[?1049", AltScreenNone},
	}
	for _, tc := range cases {
		if got := AltScreen(tc.in); got != tc.want {
			t.Fatalf("AltScreen(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
