// SPDX-License-Identifier: GPL-3.0-only

package rabbitmq

import (
	"net/url"
	"strings"
)

func QueueNameFor(bindingKey string) string {
	return strings.ReplaceAll(bindingKey, ".", "_")
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
