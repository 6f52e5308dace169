package webhook

import bridge "github.com/chimerakang/bridge-go"

// InteractionType discriminates inbound interactions.
type InteractionType int

const (
	TypePing    InteractionType = 1
	TypeCommand InteractionType = 2
)

// Response types and flags understood by the chat platform.
const (
	ResponsePong           = 1
	ResponseChannelMessage = 4

	FlagEphemeral = 1 << 6
)

// Interaction is the verified webhook envelope.
type Interaction struct {
	Type          InteractionType `json:"type"`
	Token         string          `json:"token"`
	ApplicationID string          `json:"application_id"`
	Data          *CommandData    `json:"data,omitempty"`
	Member        *Member         `json:"member,omitempty"`
	User          *User           `json:"user,omitempty"`
}

type CommandData struct {
	Name string `json:"name"`
}

// Member is set when the command was invoked in a guild.
type Member struct {
	User *User `json:"user,omitempty"`
}

type User struct {
	ID string `json:"id"`
}

// UserID returns the invoking user's durable id: the guild member's user
// when present, otherwise the direct-message user.
func (i *Interaction) UserID() string {
	if i.Member != nil && i.Member.User != nil && i.Member.User.ID != "" {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// Response is the JSON payload returned to the chat platform.
type Response struct {
	Type int           `json:"type"`
	Data *ResponseData `json:"data,omitempty"`
}

type ResponseData struct {
	Content string `json:"content"`
	Flags   int    `json:"flags,omitempty"`
}

// Pong is the fixed handshake acknowledgement.
func Pong() Response {
	return Response{Type: ResponsePong}
}

// Reply is an ephemeral channel message visible only to the invoker.
func Reply(content string) Response {
	return Response{
		Type: ResponseChannelMessage,
		Data: &ResponseData{Content: content, Flags: FlagEphemeral},
	}
}

// Command is the closed set of chat commands the gateway serves.
type Command int

const (
	CommandInvite Command = iota + 1
	CommandProfile
	CommandProfileJP
	CommandRefresh
	CommandRefreshJP
)

var commandNames = map[string]Command{
	"invite":     CommandInvite,
	"profile":    CommandProfile,
	"profile-jp": CommandProfileJP,
	"refresh":    CommandRefresh,
	"refresh-jp": CommandRefreshJP,
}

// ParseCommand maps a command name onto the command set.
func ParseCommand(name string) (Command, bool) {
	c, ok := commandNames[name]
	return c, ok
}

func (c Command) String() string {
	switch c {
	case CommandInvite:
		return "invite"
	case CommandProfile:
		return "profile"
	case CommandProfileJP:
		return "profile-jp"
	case CommandRefresh:
		return "refresh"
	case CommandRefreshJP:
		return "refresh-jp"
	default:
		return "unknown"
	}
}

// Region is the game deployment a command targets.
func (c Command) Region() bridge.Region {
	switch c {
	case CommandProfileJP, CommandRefreshJP:
		return bridge.RegionJP
	default:
		return bridge.RegionIntl
	}
}

// Request is what each command handler receives.
type Request struct {
	Command          Command
	UserID           string
	ApplicationID    string
	InteractionToken string
	RequestID        string
}
