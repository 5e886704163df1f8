package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/suite"

	"github.com/stationops/assetcycle/internal/testutil"
	"github.com/stationops/assetcycle/pkg/api"
)

type PostgresStoreSuite struct {
	suite.Suite
	db    *sql.DB
	store *PostgresStore
}

func (s *PostgresStoreSuite) SetupSuite() {
	dsn := testutil.StartPostgresContainer(s.T())

	db, err := sql.Open("pgx", dsn)
	s.Require().NoError(err)
	s.db = db

	store, err := NewPostgresStore(db)
	s.Require().NoError(err)
	s.store = store
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.db.Exec(`TRUNCATE assets, disposals, maintenance`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestConformance() {
	runStoreConformance(s.T(), s.store, s.store)
}

func (s *PostgresStoreSuite) TestDuplicateIDViaConstraint() {
	ctx := context.Background()
	a := &api.Asset{ID: "dup", Code: "C1", Status: api.AssetAvailable, Active: true, Version: 1}
	s.Require().NoError(s.store.SaveAsset(ctx, a))

	err := s.store.SaveAsset(ctx, a)
	s.Require().True(errors.Is(err, ErrDuplicateID), "got %v", err)
}

func (s *PostgresStoreSuite) TestStaleVersionDistinctFromMissing() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveAsset(ctx, &api.Asset{
		ID: "a1", Code: "C1", Status: api.AssetAvailable, Active: true, Version: 2,
	}))

	status := api.AssetAssigned
	_, err := s.store.ConditionalUpdateAsset(ctx, "a1", 9, AssetPatch{Status: &status})
	s.Require().True(errors.Is(err, ErrStaleVersion), "got %v", err)

	_, err = s.store.ConditionalUpdateAsset(ctx, "missing", 1, AssetPatch{Status: &status})
	s.Require().True(errors.Is(err, ErrAssetNotFound), "got %v", err)
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}
