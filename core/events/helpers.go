package events

import (
	"strconv"

	"launchpad/crypto"
)

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatBool(v bool) string {
	return strconv.FormatBool(v)
}

func formatAddr(a crypto.Address) string {
	if a.IsZero() {
		return ""
	}
	return a.String()
}
