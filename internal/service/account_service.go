// FILE: internal/service/account_service.go
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"ai-context-engine/internal/dto"
	"ai-context-engine/internal/entity"
	"ai-context-engine/internal/repository/specification"
	"ai-context-engine/internal/repository/unitofwork"
	"ai-context-engine/pkg/provider"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
)

type IAccountService interface {
	// AccountsByUser satisfies provider.AccountSource for the tool layer.
	AccountsByUser(ctx context.Context, userId uuid.UUID) ([]provider.Account, error)
	// VerifyServiceKey satisfies serverutils.ServiceKeyVerifier for the
	// internal API middleware.
	VerifyServiceKey(rawKey string) (string, error)
	UpsertAccount(ctx context.Context, req *dto.UpsertAccountRequest) (*dto.UpsertAccountResponse, error)
	GetAccounts(ctx context.Context, userId uuid.UUID) ([]*dto.GetAccountResponse, error)
}

type accountService struct {
	uowFactory unitofwork.RepositoryFactory
	// keyCache remembers verified service keys so the bcrypt compare does
	// not run on every internal request.
	keyCache *cache.Cache
}

func NewAccountService(uowFactory unitofwork.RepositoryFactory) IAccountService {
	return &accountService{
		uowFactory: uowFactory,
		keyCache:   cache.New(10*time.Minute, 5*time.Minute),
	}
}

func (as *accountService) AccountsByUser(ctx context.Context, userId uuid.UUID) ([]provider.Account, error) {
	uow := as.uowFactory.NewUnitOfWork(ctx)

	accounts, err := uow.ProviderAccountRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	result := make([]provider.Account, 0, len(accounts))
	for _, acc := range accounts {
		result = append(result, provider.Account{
			Email:        acc.Email,
			Provider:     acc.Provider,
			RefreshToken: acc.RefreshToken,
			Primary:      acc.IsPrimary,
		})
	}
	return result, nil
}

// VerifyServiceKey checks a raw key against every active service key. Keys
// are stored bcrypt-hashed, so each miss costs a compare; the handful of
// ingestion bridges we issue keys to keeps the loop short.
func (as *accountService) VerifyServiceKey(rawKey string) (string, error) {
	if rawKey == "" {
		return "", fmt.Errorf("empty service key")
	}

	digest := sha256.Sum256([]byte(rawKey))
	cacheKey := hex.EncodeToString(digest[:])
	if name, found := as.keyCache.Get(cacheKey); found {
		return name.(string), nil
	}

	ctx := context.Background()
	uow := as.uowFactory.NewUnitOfWork(ctx)

	keys, err := uow.ServiceKeyRepository().FindAll(ctx, specification.NotRevoked{})
	if err != nil {
		return "", err
	}

	for _, key := range keys {
		if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(rawKey)) == nil {
			as.keyCache.Set(cacheKey, key.Name, cache.DefaultExpiration)
			return key.Name, nil
		}
	}

	return "", fmt.Errorf("unknown service key")
}

// UpsertAccount creates or refreshes a provider link. Marking an account
// primary demotes the user's previous primary in the same transaction.
func (as *accountService) UpsertAccount(ctx context.Context, req *dto.UpsertAccountRequest) (*dto.UpsertAccountResponse, error) {
	uow := as.uowFactory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	existing, err := uow.ProviderAccountRepository().FindOne(ctx,
		specification.ByUserID{UserID: req.UserId},
		specification.ByProvider{Provider: req.Provider},
		specification.ByEmail{Email: req.Email},
	)
	if err != nil {
		return nil, err
	}

	if req.IsPrimary {
		primaries, err := uow.ProviderAccountRepository().FindAll(ctx,
			specification.ByUserID{UserID: req.UserId},
			specification.PrimaryOnly{},
		)
		if err != nil {
			return nil, err
		}
		for _, p := range primaries {
			if existing != nil && p.Id == existing.Id {
				continue
			}
			p.IsPrimary = false
			if err := uow.ProviderAccountRepository().Update(ctx, p); err != nil {
				return nil, err
			}
		}
	}

	var accountId uuid.UUID
	if existing != nil {
		existing.RefreshToken = req.RefreshToken
		existing.IsPrimary = req.IsPrimary
		if err := uow.ProviderAccountRepository().Update(ctx, existing); err != nil {
			return nil, err
		}
		accountId = existing.Id
	} else {
		account := entity.ProviderAccount{
			Id:           uuid.New(),
			UserId:       req.UserId,
			Provider:     req.Provider,
			Email:        req.Email,
			RefreshToken: req.RefreshToken,
			IsPrimary:    req.IsPrimary,
			CreatedAt:    time.Now(),
		}
		if err := uow.ProviderAccountRepository().Create(ctx, &account); err != nil {
			return nil, err
		}
		accountId = account.Id
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.UpsertAccountResponse{Id: accountId}, nil
}

func (as *accountService) GetAccounts(ctx context.Context, userId uuid.UUID) ([]*dto.GetAccountResponse, error) {
	uow := as.uowFactory.NewUnitOfWork(ctx)

	accounts, err := uow.ProviderAccountRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.GetAccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		resp = append(resp, &dto.GetAccountResponse{
			Id:        acc.Id,
			Provider:  acc.Provider,
			Email:     acc.Email,
			IsPrimary: acc.IsPrimary,
			CreatedAt: acc.CreatedAt,
		})
	}
	return resp, nil
}
