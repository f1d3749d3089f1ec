package servicebusclient

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"github.com/yourorg/csvkit/pkg/logging"
	"github.com/yourorg/csvkit/pkg/utils"
)

// AzureServiceBusClient implements ServiceBusClient using Azure Service Bus.
type AzureServiceBusClient struct {
	client *azservicebus.Client
	logger logging.Logger
}

// NewAzureServiceBusClient creates a new Azure Service Bus client.
// namespace is the bare namespace name; without a key name and value the
// default Azure credential chain is used.
func NewAzureServiceBusClient(namespace, keyName, keyValue string, logger logging.Logger) (*AzureServiceBusClient, error) {
	var client *azservicebus.Client

	if keyName == "" || keyValue == "" {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", err)
		}
		client, err = azservicebus.NewClient(fmt.Sprintf("%s.servicebus.windows.net", namespace), cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
		}
	} else {
		connStr := fmt.Sprintf("Endpoint=sb://%s.servicebus.windows.net/;SharedAccessKeyName=%s;SharedAccessKey=%s",
			namespace, keyName, keyValue)
		var err error
		client, err = azservicebus.NewClientFromConnectionString(connStr, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
		}
	}

	return &AzureServiceBusClient{
		client: client,
		logger: logger,
	}, nil
}

// Send sends a message to a queue or topic.
func (a *AzureServiceBusClient) Send(ctx context.Context, queueOrTopicName string, body []byte, opts ...SendOption) (string, error) {
	logger := a.logger.With(
		logging.NewField("operation", "servicebus.send"),
		logging.NewField("queue", queueOrTopicName),
	)

	sendOptions := applySendOptions(opts)

	sender, err := a.client.NewSender(queueOrTopicName, nil)
	if err != nil {
		logger.Error("Failed to create sender", logging.NewField("error", err))
		return "", fmt.Errorf("failed to create sender: %w", err)
	}
	defer sender.Close(ctx)

	messageID := sendOptions.MessageID
	if messageID == "" {
		messageID = utils.GenerateUUID()
	}

	sbMessage := &azservicebus.Message{
		Body:      body,
		MessageID: &messageID,
	}
	if sendOptions.ContentType != "" {
		sbMessage.ContentType = &sendOptions.ContentType
	}
	if sendOptions.Properties != nil {
		sbMessage.ApplicationProperties = make(map[string]interface{}, len(sendOptions.Properties))
		for k, v := range sendOptions.Properties {
			sbMessage.ApplicationProperties[k] = v
		}
	}

	if err := sender.SendMessage(ctx, sbMessage, nil); err != nil {
		logger.Error("Failed to send message", logging.NewField("error", err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	logger.Info("Message sent successfully", logging.NewField("messageID", messageID))
	return messageID, nil
}

// Close closes the Service Bus connection.
func (a *AzureServiceBusClient) Close(ctx context.Context) error {
	return a.client.Close(ctx)
}
