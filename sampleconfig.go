package main

import (
	"bytes"
	"fmt"
	"io"
	"text/template"

	. "github.com/elijahnyp/home_hub/util"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const sampleConfigTemplate = `log_level: {{.LogLevel}}
log_format: console
broker_uri: {{.BrokerURI}}
id_base: {{.IDBase}}
topic_prefix: {{.TopicPrefix}}
mqtt_enabled: true
details_port: {{.DetailsPort}}
embedded_broker:
  enabled: {{.EmbeddedBroker}}
  address: {{printf "%q" .BrokerAddress}}
simulation:
  enabled: true
  frequency: {{.Frequency}}
  workers: {{.Workers}}
{{.ModelYAML}}`

type sampleConfig struct {
	ModelYAML      string
	LogLevel       string
	BrokerURI      string
	IDBase         string
	TopicPrefix    string
	BrokerAddress  string
	DetailsPort    int
	Frequency      int
	Workers        int
	EmbeddedBroker bool
}

// WriteSampleConfig renders a config file for the current settings and the
// configured (or default) model.
func WriteSampleConfig(w io.Writer) error {
	var model Model
	if err := model.BuildModel(); err != nil {
		return err
	}
	modelBlock, err := modelYAML(model)
	if err != nil {
		return err
	}
	data := sampleConfig{
		ModelYAML:      modelBlock,
		LogLevel:       Config.GetString("log_level"),
		BrokerURI:      Config.GetString("broker_uri"),
		IDBase:         Config.GetString("id_base"),
		TopicPrefix:    Config.GetString("topic_prefix"),
		BrokerAddress:  Config.GetString("embedded_broker.address"),
		DetailsPort:    Config.GetInt("details_port"),
		Frequency:      Config.GetInt("simulation.frequency"),
		Workers:        Config.GetInt("simulation.workers"),
		EmbeddedBroker: Config.GetBool("embedded_broker.enabled"),
	}
	t, err := template.New("home_hub.yaml").Option("missingkey=zero").Parse(sampleConfigTemplate)
	if err != nil {
		return fmt.Errorf("parsing sample config template: %w", err)
	}
	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("rendering sample config: %w", err)
	}
	return nil
}

// modelYAML encodes the model block with yaml.v3 so names with quotes or
// backslashes stay valid.
func modelYAML(m Model) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(struct {
		Model Model `yaml:"model"`
	}{m}); err != nil {
		return "", fmt.Errorf("encoding model: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding model: %w", err)
	}
	return buf.String(), nil
}

func sampleConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample-config",
		Short: "Print a home_hub.yaml for the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return WriteSampleConfig(cmd.OutOrStdout())
		},
	}
}
