// Package widget is the self-contained embeddable chat surface for
// third-party pages. It shares nothing with the dashboard chat stack beyond
// the backend client: no session store, no persistence, no voice.
package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tidecall/supportkit/internal/api"
)

// fallbackReply is the static assistant bubble shown for any send failure.
// The widget keeps no error state and offers no retry.
const fallbackReply = "Sorry, something went wrong. Please try again in a moment."

// Handler serves the widget page and relays messages to the public widget
// endpoint. Construction is fail-closed: no chatbot config, no widget.
type Handler struct {
	client *api.Client
	bot    *api.ChatbotConfig
}

// New fetches the public chatbot configuration once. Any failure aborts the
// widget entirely; the host page stays up without it.
func New(ctx context.Context, client *api.Client, chatbotID string) (*Handler, error) {
	if strings.TrimSpace(chatbotID) == "" {
		return nil, fmt.Errorf("chatbot id is required")
	}

	bot, err := client.PublicConfig(ctx, chatbotID)
	if err != nil {
		return nil, fmt.Errorf("fetch chatbot config: %w", err)
	}

	return &Handler{client: client, bot: bot}, nil
}

// RegisterRoutes mounts the widget routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handlePage)
	r.Post("/messages", h.handleMessage)
}

// handlePage renders the chat shell. Every page load gets a fresh session id
// that lives only inside that page; nothing is persisted.
func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Name      string
		Welcome   string
		Color     string
		SessionID string
	}{
		Name:      h.bot.Name,
		Welcome:   h.bot.WelcomeMessage,
		Color:     h.bot.PrimaryColor,
		SessionID: uuid.NewString(),
	}
	if data.Color == "" {
		data.Color = "#2563eb"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		log.Printf("[widget] render page: %v", err)
	}
}

// handleMessage relays one message. Failures never surface as errors to the
// embedding page: the reply is simply the static fallback bubble.
func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Content   string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Content) == "" || payload.SessionID == "" {
		respondError(w, http.StatusBadRequest, "sessionId and content are required")
		return
	}

	reply, err := h.client.WidgetMessage(r.Context(), h.bot.ID, payload.SessionID, payload.Content)
	if err != nil {
		log.Printf("[widget] send failed: %v", err)
		respondJSON(w, http.StatusOK, map[string]string{"content": fallbackReply})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"content": reply.Content})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[widget] encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// pageTemplate is the whole widget: html/template escapes the chatbot
// config, and the inline script only ever writes replies with textContent,
// so no remote string can inject markup.
var pageTemplate = template.Must(template.New("widget").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Name}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #f5f5f5; }
#chat { max-width: 420px; margin: 0 auto; display: flex; flex-direction: column; height: 100vh; }
#header { background: {{.Color}}; color: #fff; padding: 12px 16px; font-weight: 600; }
#log { flex: 1; overflow-y: auto; padding: 12px; }
.bubble { margin: 6px 0; padding: 8px 12px; border-radius: 12px; max-width: 80%; white-space: pre-wrap; }
.user { background: {{.Color}}; color: #fff; margin-left: auto; }
.assistant { background: #e5e7eb; color: #111; margin-right: auto; }
#form { display: flex; border-top: 1px solid #ddd; }
#input { flex: 1; border: 0; padding: 12px; font-size: 14px; }
#send { border: 0; background: {{.Color}}; color: #fff; padding: 0 18px; cursor: pointer; }
</style>
</head>
<body>
<div id="chat">
  <div id="header">{{.Name}}</div>
  <div id="log"></div>
  <form id="form">
    <input id="input" autocomplete="off" placeholder="Type a message...">
    <button id="send" type="submit">Send</button>
  </form>
</div>
<script>
var sessionId = {{.SessionID}};
var log = document.getElementById("log");
var form = document.getElementById("form");
var input = document.getElementById("input");
var busy = false;

function bubble(role, text) {
  var div = document.createElement("div");
  div.className = "bubble " + role;
  div.textContent = text;
  log.appendChild(div);
  log.scrollTop = log.scrollHeight;
  return div;
}

bubble("assistant", {{.Welcome}});

form.addEventListener("submit", function (ev) {
  ev.preventDefault();
  var text = input.value.trim();
  if (!text || busy) return;
  busy = true;
  input.value = "";
  bubble("user", text);
  var typing = bubble("assistant", "...");
  fetch("messages", {
    method: "POST",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify({ sessionId: sessionId, content: text })
  }).then(function (resp) {
    return resp.json();
  }).then(function (data) {
    typing.textContent = data.content;
  }).catch(function () {
    typing.textContent = "Sorry, something went wrong. Please try again in a moment.";
  }).finally(function () {
    busy = false;
  });
});
</script>
</body>
</html>
`))
