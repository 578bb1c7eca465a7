package lidar

import (
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTClient manages the broker connection used to publish rendered frames
type MQTTClient struct {
	client      mqtt.Client
	prefix      string
	isConnected bool
	mu          sync.RWMutex
}

// brokerSettings resolves MQTT settings, environment variables taking precedence over the config file
func brokerSettings(config *Config) MQTTConfig {
	var settings MQTTConfig
	if config != nil {
		settings = config.MQTT
	}

	pick := func(env, fallback string) string {
		if v := os.Getenv(env); v != "" {
			return v
		}
		return fallback
	}

	settings.Broker = pick("MQTT_BROKER", settings.Broker)
	settings.ClientID = pick("MQTT_CLIENT_ID", settings.ClientID)
	settings.Username = pick("MQTT_USERNAME", settings.Username)
	settings.Password = pick("MQTT_PASSWORD", settings.Password)
	settings.PublishPrefix = pick("MQTT_PUBLISH_PREFIX", settings.PublishPrefix)

	if settings.ClientID == "" {
		settings.ClientID = "veloproj"
	}
	if settings.PublishPrefix == "" {
		settings.PublishPrefix = DefaultPublishPrefix
	}
	return settings
}

// InitMQTT creates an MQTT client from the configuration.
// If no broker is configured, MQTT is disabled and this returns nil.
func InitMQTT(config *Config) (*MQTTClient, error) {
	settings := brokerSettings(config)
	if settings.Broker == "" {
		log.Println("MQTT disabled: MQTT_BROKER not set")
		return nil, nil
	}

	c := &MQTTClient{prefix: settings.PublishPrefix}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(settings.Broker)
	opts.SetClientID(settings.ClientID)
	if settings.Username != "" {
		opts.SetUsername(settings.Username)
		opts.SetPassword(settings.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.client = mqtt.NewClient(opts)

	go c.connectWithRetry(60 * time.Second)

	return c, nil
}

// connectWithRetry attempts to connect to the MQTT broker with exponential backoff
func (c *MQTTClient) connectWithRetry(maxRetryDelay time.Duration) {
	retryDelay := 1 * time.Second

	for {
		log.Println("Connecting to MQTT broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("Successfully connected to MQTT broker")
				c.setConnected(true)
				return
			}
			log.Printf("MQTT connection failed: %v", token.Error())
		} else {
			log.Println("MQTT connection timeout")
		}

		log.Printf("Retrying MQTT connection in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

func (c *MQTTClient) onConnect(client mqtt.Client) {
	log.Println("MQTT connected")
	c.setConnected(true)
}

// onConnectionLost is called when the MQTT connection is lost.
// Auto-reconnect is enabled, so this is typically a transient event.
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("MQTT connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("MQTT reconnecting...")
}

// IsConnected returns true if the MQTT client is connected
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

// Disconnect gracefully closes the MQTT connection
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("Disconnecting from MQTT broker...")
		c.client.Disconnect(250)
		c.setConnected(false)
	}
}

// PublishPrefix returns the resolved topic prefix
func (c *MQTTClient) PublishPrefix() string {
	if c.prefix == "" {
		return DefaultPublishPrefix
	}
	return c.prefix
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// newMQTTClientWithMock wraps a provided mqtt.Client, used with MockClient in tests
func newMQTTClientWithMock(client mqtt.Client) *MQTTClient {
	return &MQTTClient{client: client}
}
