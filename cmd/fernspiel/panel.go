package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Comcast/fernspiel/config"
	"github.com/Comcast/fernspiel/service"
	"github.com/Comcast/fernspiel/sio"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
)

// panel is a stand-in for the telephone's hardware: lines of input go
// to the installation's input topic and whatever it publishes is
// printed.
func panel(ctx context.Context, client mqtt.Client, topic string, subs []string, in io.Reader, out io.Writer) error {
	topic, qos := sio.ParseTopic(topic)

	if t := client.Connect(); t.Wait() && t.Error() != nil {
		return t.Error()
	}
	defer client.Disconnect(100)

	for _, sub := range subs {
		sub, subQoS := sio.ParseTopic(sub)
		if sub == "" {
			continue
		}
		handler := func(_ mqtt.Client, m mqtt.Message) {
			fmt.Fprintf(out, "> %s %s\n", m.Topic(), m.Payload())
		}
		if t := client.Subscribe(sub, subQoS, handler); t.Wait() && t.Error() != nil {
			return t.Error()
		}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		s := bufio.NewScanner(in)
		for s.Scan() {
			lines <- s.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if t := client.Publish(topic, qos, false, []byte(line)); t.Wait() && t.Error() != nil {
				fmt.Fprintf(out, "publish error: %s\n", t.Error())
			}
		}
	}
}

func newPanelCmd() *cobra.Command {
	var (
		configPath string
		conf       config.MQTT
		subs       []string
	)
	cmd := &cobra.Command{
		Use:   "panel",
		Short: "Play the telephone's hardware over MQTT.",
		Long: `Publishes each line of stdin (a dial string, ":symbol" or a JSON request)
to the input topic and prints what's heard on the subscribed topics
(by default the output and state topics).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if configPath != "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("load settings: %w", err)
				}
				if !cmd.Flags().Changed("broker") {
					conf.Broker = cfg.MQTT.Broker
				}
				if !cmd.Flags().Changed("topic") {
					conf.InputTopic = cfg.MQTT.InputTopic
				}
				conf.Username, conf.Password = cfg.MQTT.Username, cfg.MQTT.Password
				conf.CAFile, conf.CertFile, conf.KeyFile = cfg.MQTT.CAFile, cfg.MQTT.CertFile, cfg.MQTT.KeyFile
				conf.Insecure = cfg.MQTT.Insecure
				if len(subs) == 0 {
					subs = []string{cfg.MQTT.OutputTopic, cfg.MQTT.StateTopic}
				}
			}
			if conf.Broker == "" || conf.InputTopic == "" {
				return fmt.Errorf("panel needs a broker and a topic")
			}

			client, err := sio.NewMQTTClient(service.MQTTConf(&conf))
			if err != nil {
				return err
			}
			topic, _, _ := strings.Cut(conf.InputTopic, ",")
			return panel(ctx, client, topic, subs, os.Stdin, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	cmd.Flags().StringVarP(&conf.Broker, "broker", "b", "", "MQTT broker (like 'tcp://localhost:1883')")
	cmd.Flags().StringVarP(&conf.InputTopic, "topic", "t", "", "topic to publish to")
	cmd.Flags().StringVarP(&conf.ClientId, "client-id", "i", "fernspiel-panel", "MQTT client id")
	cmd.Flags().StringSliceVarP(&subs, "sub", "s", nil, "topics to print")
	return cmd
}
