//go:build integration

package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/store"
)

func TestMySQLStoreRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	ctr, err := mysql.Run(ctx, "mysql:8.0.36",
		mysql.WithDatabase("trainingportal"),
		mysql.WithUsername("portal"),
		mysql.WithPassword("portal-secret"),
	)
	defer func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	s, err := OpenMySQL(conf.MySQLSettings{
		Host:     host,
		Port:     port.Port(),
		Username: "portal",
		Password: "portal-secret",
		Database: "trainingportal",
	})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load("events")
	require.ErrorIs(t, err, store.ErrCollectionNotFound)

	require.NoError(t, store.WriteAll(s, "events", []event{{ID: 1, Title: "Kickoff"}}))
	require.NoError(t, store.WriteAll(s, "events", []event{{ID: 1, Title: "Kickoff"}, {ID: 2, Title: "Ü-Workshop"}}))

	got, err := store.ReadAll[event](s, "events")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ü-Workshop", got[1].Title)
}
