package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-pilot/internal/domain"
	"github.com/spec-kit/support-pilot/internal/repository"
	"github.com/spec-kit/support-pilot/pkg/util"
)

func newTestService() *TicketService {
	return NewTicketService(repository.NewMemoryTicketRepository(), nil, zap.NewNop())
}

var (
	endUser = domain.Principal{UserID: "u-1", Role: domain.RoleEndUser}
	agent   = domain.Principal{UserID: "agent-1", Role: domain.RoleServiceDeskAgent}
)

func TestCreateAndGetRoundTrip(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, TicketCreateInput{
		UserID:            "u-1",
		Description:       "Laptop battery drains in an hour",
		Priority:          domain.TicketPriorityHigh,
		TraceID:           "trace-1",
		EscalationContext: "prior response",
	})
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))
	assert.Equal(t, domain.TicketStatusOpen, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := svc.GetByID(ctx, endUser, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Laptop battery drains in an hour", got.Description)
	assert.Equal(t, domain.TicketPriorityHigh, got.Priority)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "prior response", got.EscalationContext)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, TicketCreateInput{UserID: "u-1", Description: "   ", Priority: domain.TicketPriorityNormal})
	require.Error(t, err)
	assert.True(t, util.IsCode(err, util.CodeValidation))

	_, err = svc.Create(ctx, TicketCreateInput{UserID: "u-1", Description: "broken mouse", Priority: "CRITICAL"})
	require.Error(t, err)
	assert.True(t, util.IsCode(err, util.CodeValidation))
}

func TestGetByIDAccessControl(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, TicketCreateInput{
		UserID: "u-1", Description: "monitor flicker", Priority: domain.TicketPriorityNormal,
	})
	require.NoError(t, err)

	other := domain.Principal{UserID: "u-2", Role: domain.RoleEndUser}
	_, err = svc.GetByID(ctx, other, created.ID)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, util.CodePermission))

	// Agents can read anyone's ticket.
	got, err := svc.GetByID(ctx, agent, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)

	_, err = svc.GetByID(ctx, agent, 9999)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, util.CodeNotFound))
}

func TestListScoping(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, userID := range []string{"u-1", "u-2", "u-1"} {
		_, err := svc.Create(ctx, TicketCreateInput{
			UserID: userID, Description: "issue for " + userID, Priority: domain.TicketPriorityLow,
		})
		require.NoError(t, err)
	}

	mine, err := svc.List(ctx, endUser)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, ticket := range mine {
		assert.Equal(t, "u-1", ticket.UserID)
	}

	all, err := svc.List(ctx, agent)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdateStatusRequiresAgent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, TicketCreateInput{
		UserID: "u-1", Description: "vpn drops", Priority: domain.TicketPriorityNormal,
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, endUser, created.ID, domain.TicketStatusClosed)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, util.CodePermission))

	// Denied update leaves the status untouched.
	got, err := svc.GetByID(ctx, agent, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, got.Status)
}

func TestUpdateStatusTransitions(t *testing.T) {
	cases := []struct {
		name string
		from domain.TicketStatus
		to   domain.TicketStatus
		ok   bool
	}{
		{"open to in progress", domain.TicketStatusOpen, domain.TicketStatusInProgress, true},
		{"open to closed", domain.TicketStatusOpen, domain.TicketStatusClosed, true},
		{"in progress to closed", domain.TicketStatusInProgress, domain.TicketStatusClosed, true},
		{"in progress back to open", domain.TicketStatusInProgress, domain.TicketStatusOpen, false},
		{"closed to open", domain.TicketStatusClosed, domain.TicketStatusOpen, false},
		{"closed to in progress", domain.TicketStatusClosed, domain.TicketStatusInProgress, false},
		{"open to open", domain.TicketStatusOpen, domain.TicketStatusOpen, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService()
			ctx := context.Background()

			created, err := svc.Create(ctx, TicketCreateInput{
				UserID: "u-1", Description: "transition check", Priority: domain.TicketPriorityNormal,
			})
			require.NoError(t, err)

			// Walk the ticket forward to the starting status.
			if tc.from != domain.TicketStatusOpen {
				_, err = svc.UpdateStatus(ctx, agent, created.ID, tc.from)
				require.NoError(t, err)
			}

			updated, err := svc.UpdateStatus(ctx, agent, created.ID, tc.to)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.to, updated.Status)
				return
			}
			require.Error(t, err)
			assert.True(t, util.IsCode(err, util.CodeInvalidTransition))

			got, err := svc.GetByID(ctx, agent, created.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.from, got.Status)
		})
	}
}

func TestUpdateStatusUnknownValues(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, TicketCreateInput{
		UserID: "u-1", Description: "keyboard sticky keys", Priority: domain.TicketPriorityNormal,
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, agent, created.ID, "RESOLVED")
	require.Error(t, err)
	assert.True(t, util.IsCode(err, util.CodeValidation))

	_, err = svc.UpdateStatus(ctx, agent, 424242, domain.TicketStatusClosed)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, util.CodeNotFound))
}

func TestDowngradePriority(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, TicketCreateInput{
		UserID: "u-1", Description: "urgent outage", Priority: domain.TicketPriorityHigh,
	})
	require.NoError(t, err)

	_, err = svc.DowngradePriority(ctx, endUser, created.ID, domain.TicketPriorityLow)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, util.CodePermission))

	updated, err := svc.DowngradePriority(ctx, agent, created.ID, domain.TicketPriorityNormal)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityNormal, updated.Priority)

	// Upgrades are rejected.
	_, err = svc.DowngradePriority(ctx, agent, created.ID, domain.TicketPriorityHigh)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, util.CodeValidation))

	got, err := svc.GetByID(ctx, agent, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityNormal, got.Priority)
}
