// Package stratum implements the client side of the Stratum mining
// protocol: the closed set of wire methods, notification parsing,
// request construction, and the difficulty/extranonce/job-table state
// those notifications drive.
package stratum

// Method is the closed set of Stratum wire methods this client
// recognizes. Unknown methods parse to MethodUnknown and are logged and
// ignored by the caller, never treated as fatal.
type Method string

const (
	MethodSubscribe         Method = "mining.subscribe"
	MethodAuthorize         Method = "mining.authorize"
	MethodSubmit            Method = "mining.submit"
	MethodSuggestDifficulty Method = "mining.suggest_difficulty"
	MethodNotify            Method = "mining.notify"
	MethodSetDifficulty     Method = "mining.set_difficulty"
	MethodSetExtranonce     Method = "mining.set_extranonce"
	MethodReconnect         Method = "client.reconnect"
	MethodUnknown           Method = ""
)

// ParseMethod maps a wire string onto the closed Method enum, returning
// MethodUnknown for anything not in the table below.
func ParseMethod(s string) Method {
	switch Method(s) {
	case MethodSubscribe, MethodAuthorize, MethodSubmit, MethodSuggestDifficulty,
		MethodNotify, MethodSetDifficulty, MethodSetExtranonce, MethodReconnect:
		return Method(s)
	default:
		return MethodUnknown
	}
}

// IsNotification reports whether this method is a server-initiated call
// carrying no client response obligation.
func (m Method) IsNotification() bool {
	switch m {
	case MethodNotify, MethodSetDifficulty, MethodSetExtranonce, MethodReconnect:
		return true
	default:
		return false
	}
}
