package main

import (
	"bytes"
	"testing"

	. "github.com/elijahnyp/home_hub/util"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func TestWriteSampleConfig(t *testing.T) {
	Config.Set("model", nil)
	Config.Set("topic_prefix", "hab")

	var buf bytes.Buffer
	if err := WriteSampleConfig(&buf); err != nil {
		t.Fatalf("WriteSampleConfig returned error: %v", err)
	}

	var doc struct {
		Model struct {
			Rooms []struct {
				Name    string `yaml:"name"`
				Devices []struct {
					ID   int    `yaml:"id"`
					Name string `yaml:"name"`
					Kind string `yaml:"kind"`
				} `yaml:"devices"`
			} `yaml:"rooms"`
		} `yaml:"model"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("sample config is not valid YAML: %v\n%s", err, buf.String())
	}
	if len(doc.Model.Rooms) != 2 || doc.Model.Rooms[0].Devices[1].Kind != KindCamera {
		t.Errorf("unexpected rendered model %+v", doc.Model)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("sample config is not valid YAML: %v\n%s", err, buf.String())
	}

	if v.GetString("topic_prefix") != "hab" {
		t.Errorf("topic_prefix = %s, expected hab", v.GetString("topic_prefix"))
	}
	if !v.GetBool("mqtt_enabled") {
		t.Error("mqtt_enabled should be rendered true")
	}

	var model Model
	if err := v.UnmarshalKey("model", &model); err != nil {
		t.Fatalf("unmarshaling rendered model: %v", err)
	}
	expected := DefaultModel()
	if len(model.Rooms) != len(expected.Rooms) {
		t.Fatalf("Expected %d rooms, got %d", len(expected.Rooms), len(model.Rooms))
	}
	for i, room := range expected.Rooms {
		got := model.Rooms[i]
		if got.Name != room.Name || len(got.Devices) != len(room.Devices) {
			t.Errorf("room %d = %+v, expected %+v", i, got, room)
			continue
		}
		for j, d := range room.Devices {
			if got.Devices[j] != d {
				t.Errorf("device %d/%d = %+v, expected %+v", i, j, got.Devices[j], d)
			}
		}
	}
}

func TestWriteSampleConfigQuotedNames(t *testing.T) {
	Config.Set("model", map[string]interface{}{
		"rooms": []map[string]interface{}{
			{
				"name": `Kid's "Den"`,
				"info": `C:\attic`,
				"devices": []map[string]interface{}{
					{"id": 4, "name": `Lamp "Moon"`, "kind": "light"},
				},
			},
		},
	})
	defer Config.Set("model", nil)

	var buf bytes.Buffer
	if err := WriteSampleConfig(&buf); err != nil {
		t.Fatalf("WriteSampleConfig returned error: %v", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("sample config is not valid YAML: %v\n%s", err, buf.String())
	}
	var model Model
	if err := v.UnmarshalKey("model", &model); err != nil {
		t.Fatalf("unmarshaling rendered model: %v", err)
	}
	if len(model.Rooms) != 1 || len(model.Rooms[0].Devices) != 1 {
		t.Fatalf("unexpected rendered model %+v", model)
	}
	room := model.Rooms[0]
	if room.Name != `Kid's "Den"` || room.Info != `C:\attic` || room.Devices[0].Name != `Lamp "Moon"` {
		t.Errorf("names did not survive rendering: %+v", room)
	}
}
