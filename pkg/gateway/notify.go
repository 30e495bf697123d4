package gateway

import (
	"time"
)

// Routes the gateway may navigate to when the API asks for it.
const (
	RouteSignIn = "/sign-in"
	RouteHome   = "/home"
)

// Actions understood in the "action" member of an error body.
const (
	ActionLogout = "logout"
	ActionHome   = "home"
)

// ServerErrorMessage is the text of the notification raised for 5xx responses.
const ServerErrorMessage = "Ocorreu um erro no servidor. Tente novamente mais tarde."

// Level grades a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a transient, user-facing message emitted by the gateway.
// Presentation belongs to whoever subscribes.
type Notification struct {
	Level     Level
	Message   string
	Detail    string
	Status    int
	Code      string
	RequestID string
	Time      time.Time
}

// Notifier receives notifications. Implementations must not block.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Navigator performs the redirects the API can request.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// ActionFunc runs a process-wide side effect named by the API.
type ActionFunc func(g *Gateway) error
