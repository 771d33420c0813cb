package memory

import (
	"context"
	"fmt"

	"helpdesk-be/internal/entity"
	"helpdesk-be/internal/repository/contract"
	"helpdesk-be/internal/repository/unitofwork"

	"github.com/patrickmn/go-cache"
)

type repositoryFactory struct {
	db *Database
}

func NewRepositoryFactory(db *Database) unitofwork.RepositoryFactory {
	return &repositoryFactory{db: db}
}

func (f *repositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{db: f.db}
}

// unitOfWork holds the database-wide transaction lock between Begin and
// Commit/Rollback and keeps an undo log so Rollback restores every document
// the transaction touched.
type unitOfWork struct {
	db   *Database
	inTx bool
	undo map[string]*entity.Document
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.inTx {
		return fmt.Errorf("transaction already started")
	}
	u.db.txMu.Lock()
	u.inTx = true
	u.undo = make(map[string]*entity.Document)
	return nil
}

func (u *unitOfWork) Commit() error {
	if !u.inTx {
		return fmt.Errorf("no transaction to commit")
	}
	u.end()
	return nil
}

func (u *unitOfWork) Rollback() error {
	if !u.inTx {
		return fmt.Errorf("no transaction to rollback")
	}
	u.db.mu.Lock()
	for k, prev := range u.undo {
		if prev == nil {
			u.db.cache.Delete(k)
		} else {
			u.db.cache.Set(k, prev, cache.NoExpiration)
		}
	}
	u.db.mu.Unlock()
	u.end()
	return nil
}

func (u *unitOfWork) end() {
	u.inTx = false
	u.undo = nil
	u.db.txMu.Unlock()
}

func (u *unitOfWork) DocumentRepository() contract.DocumentRepository {
	return &DocumentRepository{db: u.db, uow: u}
}
