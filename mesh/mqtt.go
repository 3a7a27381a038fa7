package mesh

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// PlanHandler is called for every plan message received. planID comes from
// the last topic segment unless the document carries its own id.
type PlanHandler func(planID string, plan *FloorPlan, err error)

// MQTTClient manages the broker connection and the plan topic subscription
type MQTTClient struct {
	client      mqtt.Client
	config      *Config
	planHandler PlanHandler
	isConnected bool
	done        chan struct{}
	closeOnce   sync.Once
	mu          sync.RWMutex
}

// NewMQTTClient builds a client from config and starts connecting in the
// background. Environment overrides must already be applied to config.
func NewMQTTClient(config *Config, handler PlanHandler) (*MQTTClient, error) {
	if config == nil {
		return nil, fmt.Errorf("MQTT enabled but no configuration provided")
	}
	if err := config.ValidateMQTT(); err != nil {
		return nil, err
	}

	client := &MQTTClient{
		config:      config,
		planHandler: handler,
		done:        make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.MQTT.Broker)

	clientID := config.MQTT.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	opts.SetClientID(clientID)

	if config.MQTT.Username != "" {
		opts.SetUsername(config.MQTT.Username)
		opts.SetPassword(config.MQTT.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false) // keep the subscription across reconnects
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)

	go client.connectWithRetry()

	return client, nil
}

// connectWithRetry attempts to connect to the broker with exponential backoff
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("[MQTT] Connecting to broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("[MQTT] Connected to broker")
				c.setConnected(true)
				return
			}
			log.Printf("[MQTT] Connection failed: %v", token.Error())
		} else {
			log.Println("[MQTT] Connection timeout")
		}

		log.Printf("[MQTT] Retrying connection in %v...", retryDelay)
		select {
		case <-c.done:
			return
		case <-time.After(retryDelay):
		}
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// onConnect subscribes to the plan topic
func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)

	topic := c.config.MQTT.PlanTopic
	log.Printf("[MQTT] Subscribing to %s", topic)
	token := client.Subscribe(topic, 1, c.createMessageHandler())
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("[MQTT] Error subscribing to %s: %v", topic, token.Error())
		return
	}
	log.Printf("[MQTT] Subscribed to %s", topic)
}

// onConnectionLost is typically transient, auto-reconnect will retry
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("[MQTT] Connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("[MQTT] Reconnecting...")
}

// createMessageHandler decodes plan payloads and hands them to the plan handler
func (c *MQTTClient) createMessageHandler() mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		payload := msg.Payload()
		planID := PlanIDFromTopic(msg.Topic())
		log.Printf("[MQTT] Received plan %s (topic: %s, size: %d bytes)", planID, msg.Topic(), len(payload))

		if len(payload) == 0 {
			// Retained message cleared
			return
		}

		plan, err := DecodePlanData(payload)
		if err != nil {
			log.Printf("[MQTT] Error decoding plan %s: %v", planID, err)
			if c.planHandler != nil {
				c.planHandler(planID, nil, err)
			}
			return
		}
		if plan.ID == "" {
			plan.ID = planID
		}

		if c.planHandler != nil {
			c.planHandler(plan.ID, plan, nil)
		}
	}
}

// PlanIDFromTopic takes the last non-empty topic segment as the plan id.
// Example: "wallmesh/plans/house" -> "house"
func PlanIDFromTopic(topic string) string {
	parts := strings.Split(strings.TrimRight(topic, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" && p != "+" && p != "#" {
			return p
		}
	}
	return "plan"
}

// IsConnected returns true if the client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect stops reconnect attempts and closes the connection
func (c *MQTTClient) Disconnect() {
	c.closeOnce.Do(func() {
		if c.done != nil {
			close(c.done)
		}
	})
	if c.client != nil && c.client.IsConnected() {
		log.Println("[MQTT] Disconnecting from broker...")
		c.client.Disconnect(250)
	}
	c.setConnected(false)
}

// GetClient returns the underlying client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// newMQTTClientWithClient wraps an existing mqtt.Client, used with fakes in tests
func newMQTTClientWithClient(client mqtt.Client, config *Config, handler PlanHandler) *MQTTClient {
	return &MQTTClient{
		client:      client,
		config:      config,
		planHandler: handler,
		done:        make(chan struct{}),
	}
}
