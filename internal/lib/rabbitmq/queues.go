package rabbitmq

// Ключи маршрутизации писем.
const (
	RoutingKeyCode    = "email.code"
	RoutingKeyWelcome = "email.welcome"
)

const prefetch = 10

// QueueConfig очередь и ключ, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// EmailQueues очереди почтового воркера.
func EmailQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "identity.email.code", RoutingKey: RoutingKeyCode},
		{QueueName: "identity.email.welcome", RoutingKey: RoutingKeyWelcome},
	}
}
