package notifications

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/pkg/logger"
)

type fakeSender struct {
	batches [][]string
	fail    map[string]bool
	err     error
}

func (f *fakeSender) SendEachForMulticast(_ context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, m.Tokens)
	resp := &messaging.BatchResponse{}
	for _, tok := range m.Tokens {
		if f.fail[tok] {
			resp.FailureCount++
			resp.Responses = append(resp.Responses, &messaging.SendResponse{Error: errors.New("boom")})
			continue
		}
		resp.SuccessCount++
		resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true, MessageID: "m-" + tok})
	}
	return resp, nil
}

type fakeTokens struct {
	tokens  []string
	removed []string
}

func (f *fakeTokens) DeviceTokens(context.Context, []primitive.ObjectID) ([]string, error) {
	return f.tokens, nil
}

func (f *fakeTokens) RemoveDeviceTokens(_ context.Context, tokens []string) error {
	f.removed = append(f.removed, tokens...)
	return nil
}

func TestFCMPusher_ChunksTokens(t *testing.T) {
	tokens := make([]string, maxMulticastTokens+1)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok-%d", i)
	}
	sender := &fakeSender{fail: map[string]bool{"tok-3": true}}
	store := &fakeTokens{tokens: tokens}

	p := NewFCMPusher(sender, store, logger.Nop())
	err := p.Push(context.Background(), []primitive.ObjectID{primitive.NewObjectID()}, Message{Type: TypeClaimApproved, Title: "Approved"})
	require.NoError(t, err)

	require.Len(t, sender.batches, 2)
	require.Len(t, sender.batches[0], maxMulticastTokens)
	require.Len(t, sender.batches[1], 1)
	// generic failures are not treated as stale registrations
	require.Empty(t, store.removed)
}

func TestFCMPusher_NoTokens(t *testing.T) {
	sender := &fakeSender{}
	p := NewFCMPusher(sender, &fakeTokens{}, logger.Nop())
	require.NoError(t, p.Push(context.Background(), nil, Message{}))
	require.Empty(t, sender.batches)
}

func TestFCMPusher_SendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("quota")}
	p := NewFCMPusher(sender, &fakeTokens{tokens: []string{"a"}}, logger.Nop())
	require.ErrorContains(t, p.Push(context.Background(), nil, Message{}), "quota")
}
