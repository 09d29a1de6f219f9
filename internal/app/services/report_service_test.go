package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deniz/labstock/internal/app/models"
)

func TestUsageReport(t *testing.T) {
	store := newMemStore()
	service := NewReportService(store, zerolog.Nop())
	ctx := context.Background()

	studentID, err := store.CreateUser(ctx, &models.User{
		Email: "jane@lab.edu", Name: "Jane Doe", RoleType: models.RoleStudent,
	})
	require.NoError(t, err)
	componentID, err := store.CreateComponent(ctx, &models.Component{
		Name: "Arduino Uno R3", TotalQuantity: 10, AvailableQuantity: 10,
	})
	require.NoError(t, err)

	ids := make([]int64, 3)
	for i := range ids {
		ids[i], err = store.CreateRequest(ctx, &models.Request{
			StudentID: studentID, ComponentID: componentID, Quantity: 1, Status: models.StatusRequested,
		})
		require.NoError(t, err)
	}
	_, err = store.ApproveRequest(ctx, ids[0])
	require.NoError(t, err)
	_, err = store.RejectRequest(ctx, ids[1])
	require.NoError(t, err)

	report, err := service.UsageReport(ctx)
	require.NoError(t, err)

	assert.Len(t, report.Rows, 3)
	assert.Equal(t, 1, report.StatusCount["Approved"])
	assert.Equal(t, 1, report.StatusCount["Rejected"])
	assert.Equal(t, 1, report.StatusCount["Requested"])
	assert.False(t, report.GeneratedAt.IsZero())

	for _, row := range report.Rows {
		assert.Equal(t, "Jane Doe", row.StudentName)
		assert.Equal(t, "jane@lab.edu", row.StudentEmail)
		assert.Equal(t, "Arduino Uno R3", row.ComponentName)
	}
}

func TestUsageReportEmpty(t *testing.T) {
	store := newMemStore()
	service := NewReportService(store, zerolog.Nop())

	report, err := service.UsageReport(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Rows)
	assert.Empty(t, report.StatusCount)
}
