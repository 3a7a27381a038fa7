package main

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/kwv/wallmesh/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMQTTPlanRoundTrip publishes a plan to a real broker and waits for the
// scene summary the service publishes back
func TestMQTTPlanRoundTrip(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "1" {
		t.Skip("Skipping integration test (set RUN_INTEGRATION_TESTS=1 to run)")
	}
	broker := os.Getenv("MQTT_TEST_BROKER")
	if broker == "" {
		broker = "tcp://localhost:1883"
	}

	app, _ := testApp(t)
	app.Config.MQTT.Broker = broker
	app.Config.MQTT.ClientID = "wallmesh-it-service"
	app.Config.MQTT.PublishPrefix = "wallmesh-it"
	app.Config.MQTT.PlanTopic = "wallmesh-it/plans/+"

	svc, err := mesh.NewMQTTClient(app.Config, app.handlePlanMessage)
	require.NoError(t, err)
	defer svc.Disconnect()
	app.MQTTClient = svc
	app.Publisher = mesh.NewPublisher(svc.GetClient(), app.Config.MQTT.PublishPrefix)

	require.Eventually(t, svc.IsConnected, 10*time.Second, 100*time.Millisecond)

	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID("wallmesh-it-observer")
	observer := mqtt.NewClient(opts)
	token := observer.Connect()
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())
	defer observer.Disconnect(250)

	summaries := make(chan mesh.SceneSummaryMessage, 1)
	token = observer.Subscribe("wallmesh-it/house/summary", 1, func(_ mqtt.Client, msg mqtt.Message) {
		var s mesh.SceneSummaryMessage
		if json.Unmarshal(msg.Payload(), &s) == nil {
			select {
			case summaries <- s:
			default:
			}
		}
	})
	require.True(t, token.WaitTimeout(5*time.Second))

	token = observer.Publish("wallmesh-it/plans/house", 1, false, []byte(testPlanJSON))
	require.True(t, token.WaitTimeout(5*time.Second))

	select {
	case s := <-summaries:
		assert.Equal(t, "house", s.PlanID)
		assert.Equal(t, 7, s.Walls)
	case <-time.After(10 * time.Second):
		t.Fatal("no scene summary received")
	}

	_, ok := app.Store.Get("house")
	assert.True(t, ok)
}
