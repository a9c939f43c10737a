package tutor

import "testing"

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"well formed", "**Header**\n\n* item one\n* item two", "**Header**\n\n* item one\n* item two"},
		{"triple header", "***Header***", "**Header**"},
		{"header with stray markers", "**Step *1*: Plan**", "**Step 1: Plan**"},
		{"header padding", "** Title **", "**Title**"},
		{"bullet", "*item", "* item"},
		{"indented bullet", "  *   nested", "  * nested"},
		{"indented header", "  **Indented Header**", "  **Indented Header**"},
		{"indented triple header", "\t***Steps***", "\t**Steps**"},
		{"bold inside bullet kept", "* **Key** idea", "* **Key** idea"},
		{"inline triple run", "This is ***very*** important", "This is **very** important"},
		{"isolated marker dropped", "Multiply 2 * 3 here", "Multiply 2  3 here"},
		{"multiple spans kept", "**Bold** and **more**", "**Bold** and **more**"},
		{"numbered list kept", "1. **Identify** the facts", "1. **Identify** the facts"},
		{"blank lines kept", "a\n\n   \nb", "a\n\n   \nb"},
		{"leftover turns into header", "**done*** *", "**done**"},
		{"long run collapsed", "wow ****** wow", "wow ** wow"},
		{"only markers", "*****", "**"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Sanitize(tt.in); got != tt.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"**Header**\n\n* item one\n* item two",
		"***Header***",
		"****",
		"*****",
		"*",
		"* ",
		"**a*** *",
		"*italic* word",
		"* *x",
		"* ***x***",
		"text *** with *** runs",
		"**a**b**",
		"** **",
		"mixed **bold** and *single* and ***triple***",
		"  * bullet with ***run***\n***Title***\n\nplain * star",
		"**Step 1:** Understand\n- dash bullet\n*star bullet\n   \n**End**",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
