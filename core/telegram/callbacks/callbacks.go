// Package callbacks decodes inline button callback data.
package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Split returns the unique key and payload of cb. Telebot fills Unique
// when it routed the button itself; otherwise Data carries the raw
// "\f<unique>|<payload>" form.
func Split(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	key, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(key), payload
}

// CallbackKey returns the unique key of the pressed button.
func CallbackKey(c tele.Context) string {
	key, _ := Split(c.Callback())
	return key
}

// CallbackPayload returns the payload of the pressed button.
func CallbackPayload(c tele.Context) string {
	_, payload := Split(c.Callback())
	return payload
}

// PayloadBool parses a yes/no payload.
func PayloadBool(c tele.Context) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(CallbackPayload(c))) {
	case "yes", "y", "true", "1":
		return true, nil
	case "no", "n", "false", "0":
		return false, nil
	}
	return false, strconv.ErrSyntax
}
