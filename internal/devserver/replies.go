package devserver

import "strings"

const greetingReply = "¡Hola! ¿En qué puedo ayudarte?"

// cannedReplies answer the chat palette topics.
var cannedReplies = []struct {
	prefix string
	reply  string
}{
	{"/web", "We build fast, accessible websites and web apps. Tell us about the pages and integrations you need."},
	{"/app", "We design and ship iOS and Android apps. Which platforms and core features do you have in mind?"},
	{"/ai", "We integrate AI assistants, search and automation into existing products. What process would you like to improve?"},
	{"/budget", "Projects usually start from a short discovery phase. Share your scope and timeline and we will send an estimate."},
	{"/human", "A member of our team will contact you shortly. Leave your email or phone number if you prefer a call."},
}

// Reply picks the canned answer for a message.
func Reply(message string) string {
	text := strings.TrimSpace(message)
	lower := strings.ToLower(text)
	for _, c := range cannedReplies {
		if lower == c.prefix || strings.HasPrefix(lower, c.prefix+" ") {
			return c.reply
		}
	}
	return greetingReply
}
