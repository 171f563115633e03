package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solrem-markets/internal/auth"
	"solrem-markets/internal/models"
	"solrem-markets/internal/repository"

	"github.com/gagliardetto/solana-go"
	"gorm.io/gorm"
)

type AuthService struct {
	repo *repository.Repository
}

func NewAuthService(repo *repository.Repository) *AuthService {
	return &AuthService{repo: repo}
}

// WalletLogin finds or creates the user for a wallet address and issues a
// session token. Signature verification happens in the handler before this
// is called.
func (as *AuthService) WalletLogin(ctx context.Context, walletAddress string) (string, *models.User, error) {
	if _, err := solana.PublicKeyFromBase58(walletAddress); err != nil {
		return "", nil, fmt.Errorf("invalid wallet address: %w", err)
	}

	user, err := as.repo.GetUserByWallet(ctx, walletAddress)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = &models.User{
			WalletAddress: walletAddress,
			Nickname:      shortAddress(walletAddress),
			CreatedAt:     time.Now(),
		}
		if err := as.repo.CreateUser(ctx, user); err != nil {
			return "", nil, fmt.Errorf("failed to create user: %w", err)
		}
		log.Printf("[AuthService] New user registered: %s", walletAddress)
	} else if err != nil {
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	token, err := auth.GenerateToken(user.ID, user.WalletAddress)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return token, user, nil
}

// GetUserByWallet retrieves a user by wallet address
func (as *AuthService) GetUserByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	return as.repo.GetUserByWallet(ctx, walletAddress)
}

func shortAddress(address string) string {
	if len(address) <= 8 {
		return address
	}
	return address[:4] + "..." + address[len(address)-4:]
}
