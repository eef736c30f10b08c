package transport

import (
	"context"
	"fmt"

	hedera "github.com/hiero-ledger/hiero-sdk-go/v2/sdk"
	"github.com/rs/zerolog"
)

// HCSTransport publishes and subscribes over Hedera Consensus Service
// topics. Sequence numbers are the consensus sequence numbers assigned by
// the network; mirror-node subscriptions deliver messages in that order.
type HCSTransport struct {
	client *hedera.Client
	logger zerolog.Logger
}

// NewHCSTransport builds a transport for the named network ("testnet",
// "mainnet", "previewnet") using the given operator credentials.
func NewHCSTransport(network, operatorID, operatorKey string, logger zerolog.Logger) (*HCSTransport, error) {
	var client *hedera.Client
	switch network {
	case "mainnet":
		client = hedera.ClientForMainnet()
	case "previewnet":
		client = hedera.ClientForPreviewnet()
	default:
		client = hedera.ClientForTestnet()
	}

	accountID, err := hedera.AccountIDFromString(operatorID)
	if err != nil {
		return nil, fmt.Errorf("invalid operator account id: %w", err)
	}
	key, err := hedera.PrivateKeyFromString(operatorKey)
	if err != nil {
		return nil, fmt.Errorf("invalid operator key: %w", err)
	}
	client.SetOperator(accountID, key)

	return &HCSTransport{
		client: client,
		logger: logger.With().Str("component", "hcs").Logger(),
	}, nil
}

// Close releases the underlying Hedera client.
func (t *HCSTransport) Close() error {
	return t.client.Close()
}

// MaxMessageSize reports the HCS per-message byte ceiling.
func (t *HCSTransport) MaxMessageSize() int {
	return MaxMessageBytes
}

// CreateTopic allocates a new consensus topic.
func (t *HCSTransport) CreateTopic(ctx context.Context, memo string) (string, error) {
	resp, err := hedera.NewTopicCreateTransaction().
		SetTopicMemo(memo).
		Execute(t.client)
	if err != nil {
		return "", fmt.Errorf("topic create: %w", err)
	}

	receipt, err := resp.GetReceipt(t.client)
	if err != nil {
		return "", fmt.Errorf("topic create receipt: %w", err)
	}
	if receipt.TopicID == nil {
		return "", fmt.Errorf("topic create receipt missing topic id")
	}

	topicID := receipt.TopicID.String()
	t.logger.Info().Str("topic", topicID).Str("memo", memo).Msg("topic created")
	return topicID, nil
}

// Publish submits a message to the topic and waits for consensus,
// returning the assigned sequence number.
func (t *HCSTransport) Publish(ctx context.Context, topicID string, data []byte) (uint64, error) {
	if len(data) > MaxMessageBytes {
		return 0, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}

	id, err := hedera.TopicIDFromString(topicID)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTopic, topicID)
	}

	resp, err := hedera.NewTopicMessageSubmitTransaction().
		SetTopicID(id).
		SetMessage(data).
		Execute(t.client)
	if err != nil {
		return 0, fmt.Errorf("message submit: %w", err)
	}

	receipt, err := resp.GetReceipt(t.client)
	if err != nil {
		return 0, fmt.Errorf("message submit receipt: %w", err)
	}

	return receipt.TopicSequenceNumber, nil
}

type hcsSubscription struct {
	handle hedera.SubscriptionHandle
}

func (s *hcsSubscription) Unsubscribe() {
	s.handle.Unsubscribe()
}

// Subscribe attaches a mirror-node subscription to the topic.
func (t *HCSTransport) Subscribe(ctx context.Context, topicID string, onMessage func(Message)) (Subscription, error) {
	id, err := hedera.TopicIDFromString(topicID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topicID)
	}

	handle, err := hedera.NewTopicMessageQuery().
		SetTopicID(id).
		Subscribe(t.client, func(msg hedera.TopicMessage) {
			onMessage(Message{
				TopicID:  topicID,
				Sequence: msg.SequenceNumber,
				Contents: msg.Contents,
			})
		})
	if err != nil {
		return nil, fmt.Errorf("mirror subscribe: %w", err)
	}

	t.logger.Debug().Str("topic", topicID).Msg("subscribed")
	return &hcsSubscription{handle: handle}, nil
}
