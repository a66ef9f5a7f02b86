package stratumclient

import (
	"encoding/json"

	"stratumclient/stratum"
)

// eventKind tags what crossed the I/O-goroutine -> façade channel.
type eventKind int

const (
	eventSent eventKind = iota
	eventResponse
	eventLocalReject
	eventNotifyJob
	eventSetDifficulty
	eventSetExtranonce
	eventReconnect
	eventFatal
)

// event is the single typed message the I/O goroutine ever sends to the
// façade. Only the fields relevant to kind are populated.
type event struct {
	kind eventKind

	// eventSent / eventResponse
	id      int64
	method  stratum.Method
	isError bool
	result  json.RawMessage
	errPay  json.RawMessage

	// eventLocalReject: a cmdSubmit the I/O goroutine rejected against
	// its own job table without ever touching the wire.
	localErr *Error

	// eventNotifyJob
	notify stratum.JobNotification

	// eventSetDifficulty
	difficulty float64

	// eventSetExtranonce
	setExtranonce stratum.SetExtranonce

	// eventFatal
	fatal *Error
}

// commandKind tags what crossed the façade -> I/O-goroutine channel.
type commandKind int

const (
	cmdSend commandKind = iota
	cmdSubmit
	cmdCancel
	cmdClose
)

// command is the single typed message the façade ever sends to the I/O
// goroutine.
type command struct {
	kind   commandKind
	method stratum.Method
	params interface{}
	result stratum.JobResult // only meaningful for cmdSubmit
	id     int64             // only meaningful for cmdCancel
}
