package chat

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestAssembleOrdering(t *testing.T) {
	base := NewHistory("s", testPrompt).Append(
		Message{Role: RoleUser, Text: "first question"},
		Message{Role: RoleAssistant, Text: "first answer"},
	)
	for k := 0; k <= 5; k++ {
		fragments := make([]Fragment, k)
		for i := range fragments {
			fragments[i] = Fragment{Text: fmt.Sprintf("excerpt %d", i)}
		}
		prompt, updated := Assemble(base, fragments, "next question")

		if len(prompt) != 3+k+1 {
			t.Fatalf("k=%d prompt len: want=%d got=%d", k, 3+k+1, len(prompt))
		}
		if prompt[0] != base.Messages[0] {
			t.Fatalf("k=%d first message must be system: %+v", k, prompt[0])
		}
		if prompt[1].Text != "first question" || prompt[2].Text != "first answer" {
			t.Fatalf("k=%d prior history out of order: %+v", k, prompt[1:3])
		}
		for i := 0; i < k; i++ {
			m := prompt[3+i]
			if m.Role != RoleSystem || !strings.HasSuffix(m.Text, fmt.Sprintf("excerpt %d", i)) || !strings.HasPrefix(m.Text, "Relevant case document excerpt:") {
				t.Fatalf("k=%d fragment %d: got=%+v", k, i, m)
			}
		}
		if last := prompt[len(prompt)-1]; last != (Message{Role: RoleUser, Text: "next question"}) {
			t.Fatalf("k=%d last message: got=%+v", k, last)
		}

		want := base.Append(Message{Role: RoleUser, Text: "next question"})
		if !reflect.DeepEqual(updated, want) {
			t.Fatalf("k=%d updated history: want=%+v got=%+v", k, want, updated)
		}
	}
}

func TestAssembleScenarioEmptySession(t *testing.T) {
	h := NewHistory("s", testPrompt)
	prompt, updated := Assemble(h, []Fragment{{Text: "Case 2023-CV-001 was filed..."}}, "What is the case number?")
	if len(prompt) != 3 {
		t.Fatalf("prompt len: want=3 got=%d", len(prompt))
	}
	if prompt[0].Role != RoleSystem || prompt[1].Role != RoleSystem || prompt[2].Role != RoleUser {
		t.Fatalf("roles: got=%+v", prompt)
	}
	if !strings.Contains(prompt[1].Text, "Case 2023-CV-001 was filed...") {
		t.Fatalf("fragment: got=%q", prompt[1].Text)
	}
	if len(updated.Messages) != 2 || strings.Contains(updated.Messages[1].Text, "excerpt") {
		t.Fatalf("fragments must not enter history: %+v", updated.Messages)
	}
	if len(h.Messages) != 1 {
		t.Fatalf("input history mutated: %+v", h.Messages)
	}
}
