package event

import "strings"

// idsFromTopic extracts field and sensor from event/irrigationDecision/{field}/{sensor}.
func idsFromTopic(topic string) (field, sensor string) {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	if len(parts) >= 3 {
		field = parts[2]
	}
	if len(parts) >= 4 {
		sensor = parts[3]
	}
	return field, sensor
}
