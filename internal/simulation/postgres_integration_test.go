//go:build integration

package simulation_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"parite/internal/domain"
	"parite/internal/simulation"
	"parite/pkg/testutil/containers"
)

type PostgresSimulationSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *simulation.PostgresStore
}

func TestPostgresSimulationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSimulationSuite))
}

func (s *PostgresSimulationSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = simulation.NewPostgres(s.postgres.Pool)
}

func (s *PostgresSimulationSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "simulation"))
}

func (s *PostgresSimulationSuite) TestCreateGetPut() {
	ctx := context.Background()

	id, err := s.store.Create(ctx, domain.Data{"effectif": map[string]any{"total": 100.0}})
	s.Require().NoError(err)
	s.NotEqual(uuid.Nil, id)

	record, err := s.store.Get(ctx, id)
	s.Require().NoError(err)
	s.EqualValues(100, record.Data.Path("effectif.total"))

	updated, err := s.store.Put(ctx, id, domain.Data{"effectif": map[string]any{"total": 250.0}})
	s.Require().NoError(err)
	s.EqualValues(250, updated.Data.Path("effectif.total"))
	s.False(updated.ModifiedAt.Before(record.ModifiedAt))
}

func (s *PostgresSimulationSuite) TestGetUnknownID() {
	_, err := s.store.Get(context.Background(), uuid.New())
	s.ErrorIs(err, simulation.ErrNotFound)
}
