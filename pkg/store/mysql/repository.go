package mysql

import "loanpilot/pkg/store/mysql/model"

// Repository aggregates all MySQL repositories
type Repository struct {
	ds *Datastore

	Application *ApplicationRepository
	Prediction  *PredictionRepository
	Release     *ReleaseRepository
}

// NewRepository creates a new MySQL repository with all sub-repositories
// and ensures the schema exists.
func NewRepository(dsn string) (*Repository, error) {
	ds, err := NewDatastore(dsn)
	if err != nil {
		return nil, err
	}

	if err := ds.GetDB().AutoMigrate(
		&model.Application{},
		&model.Prediction{},
		&model.Release{},
	); err != nil {
		return nil, err
	}

	return &Repository{
		ds:          ds,
		Application: NewApplicationRepository(ds),
		Prediction:  NewPredictionRepository(ds),
		Release:     NewReleaseRepository(ds),
	}, nil
}

// GetDatastore returns the underlying datastore for transaction support
func (r *Repository) GetDatastore() *Datastore {
	return r.ds
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.ds.Close()
}
