package settings

// Defaults is the compiled-in fallback table: the value of last resort
// when no scope carries a non-blank override. Values are raw strings;
// typed coercion happens at the resolver edge, never here.
var Defaults = map[string]string{
	"messages_per_page":     "50",
	"tree_order":            "oldest",
	"allow_anonymous":       "true",
	"allow_votes":           "true",
	"allow_drafts":          "true",
	"signature":             "",
	"thread_autoclose_days": "0",
	"max_message_length":    "10000",
	"unread_badge":          "true",
}
