package chat

const fragmentPrefix = "Relevant case document excerpt:\n"

// Assemble builds the prompt sent to the model and the history to persist.
// Prompt order: the system message, prior turns, one system message per
// fragment in retrieval order, then the query. Fragments never enter the
// returned history, which is history plus the query as a user message.
func Assemble(history History, fragments []Fragment, query string) ([]Message, History) {
	userMsg := Message{Role: RoleUser, Text: query}

	prompt := make([]Message, 0, len(history.Messages)+len(fragments)+1)
	prompt = append(prompt, history.System())
	for _, m := range history.Messages {
		if m.Role == RoleSystem {
			continue
		}
		prompt = append(prompt, m)
	}
	for _, f := range fragments {
		prompt = append(prompt, Message{Role: RoleSystem, Text: fragmentPrefix + f.Text})
	}
	prompt = append(prompt, userMsg)

	return prompt, history.Append(userMsg)
}
