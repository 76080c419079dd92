package util

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/elijahnyp/home_hub/hub"
)

type HAAvailability struct {
	Topic               string `json:"topic"`                 // : "hab/online"
	PayloadAvailable    string `json:"payload_available"`     // : "online"
	PayloadNotAvailable string `json:"payload_not_available"` // : "offline"
}

type HADeviceSpec struct {
	Name        string   `json:"name"` // : "Home Hub"
	Identifiers []string `json:"ids"`  // : ["home_hub"]
}

type HAAdvertisement struct { //nolint:govet // struct layout optimized for JSON field order
	Availability []HAAvailability `json:"availability"`
	Device       HADeviceSpec     `json:"device"`
	UniqueID     string           `json:"uniq_id"`     // "home_hub-device-1"
	Name         string           `json:"name"`        // : "Living Room Light"
	StateTopic   string           `json:"state_topic"` // : "hab/devices/1/state"
	Icon         string           `json:"icon,omitempty"`
	Platform     string           `json:"platform"` // "sensor"
	Qos          int              `json:"qos"`
}

func (ha HAAdvertisement) ToJson() string {
	data, err := json.Marshal(ha)
	if err != nil {
		Logger.Error().Msgf("Error marshalling HAAdvertisement: %v", err)
		return ""
	}
	return string(data)
}

// DeviceStateTopic is where the last payload of a device is kept retained.
func DeviceStateTopic(id int) string {
	return Topic("devices", strconv.Itoa(id), "state")
}

func haIcon(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "light"):
		return "mdi:lightbulb"
	case strings.Contains(n, "thermostat"):
		return "mdi:thermostat"
	case strings.Contains(n, "camera"):
		return "mdi:cctv"
	}
	return ""
}

func ConstructHAAdvertisement(d hub.DeviceInfo) HAAdvertisement {
	idBase := Config.GetString("id_base")
	return HAAdvertisement{
		Name:       d.Name,
		StateTopic: DeviceStateTopic(d.ID),
		Availability: []HAAvailability{
			{
				Topic:               OnlineTopic(),
				PayloadAvailable:    "online",
				PayloadNotAvailable: "offline",
			},
		},
		Qos:      0,
		UniqueID: fmt.Sprintf("%s-device-%d", idBase, d.ID),
		Icon:     haIcon(d.Name),
		Platform: "sensor",
		Device: HADeviceSpec{
			Name:        idBase,
			Identifiers: []string{idBase},
		},
	}
}

func HAConfigTopic(d hub.DeviceInfo) string {
	return fmt.Sprintf("homeassistant/sensor/%s_%d/state/config", Config.GetString("id_base"), d.ID)
}

// AdvertiseHA publishes a discovery record for every device. It stops at
// the first publish error.
func AdvertiseHA(devices []hub.DeviceInfo, client MQTT.Client) error {
	for _, d := range devices {
		ha := ConstructHAAdvertisement(d)
		if token := client.Publish(HAConfigTopic(d), 0, true, ha.ToJson()); token.Wait() && token.Error() != nil {
			return fmt.Errorf("advertising device %d: %w", d.ID, token.Error())
		}
	}
	return nil
}
