package config

import "github.com/f5devcentral/telemetry-streaming-agent/models"

// buildMappings assembles the producer->consumer routing table (§3
// Mappings, §4.1 step 6): every enabled listener and system poller in a
// namespace routes to every enabled push consumer declared in that same
// namespace; every pull-consumer group routes to its owning pull consumer.
func buildMappings(components []models.Component, pushConsumersByNS map[string][]string, pullGroupOf map[string]string) map[string][]string {
	mappings := map[string][]string{}

	for _, c := range components {
		if !c.Enable {
			continue
		}
		switch c.Class {
		case "Telemetry_Listener", "Telemetry_System_Poller":
			consumers := pushConsumersByNS[c.Namespace]
			if len(consumers) == 0 {
				continue
			}
			mappings[c.ID] = append([]string(nil), consumers...)
		}
	}

	for consumerID, groupID := range pullGroupOf {
		mappings[groupID] = append(mappings[groupID], consumerID)
	}

	return mappings
}
