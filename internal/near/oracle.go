package near

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"balance-history/internal/domain"
	"balance-history/internal/numeric"
)

// NEP-141 and NEP-148 view methods.
const (
	methodFTBalanceOf = "ft_balance_of"
	methodFTMetadata  = "ft_metadata"
)

// Oracle answers balance and metadata questions from an RPC node.
type Oracle struct {
	client RPCClient
	logger zerolog.Logger
}

// NewOracle creates an Oracle over client.
func NewOracle(client RPCClient, logger zerolog.Logger) *Oracle {
	return &Oracle{client: client, logger: logger}
}

// BalanceAt returns the token balance of account on contract at block
// height. An account without a registered balance holds zero.
func (o *Oracle) BalanceAt(ctx context.Context, contract, account string, height uint64) (numeric.U128, error) {
	balance, err := o.ftBalanceOf(ctx, contract, account, height)
	if errors.Is(err, ErrNoBalanceRegistered) {
		o.logger.Debug().
			Str("contract", contract).
			Str("account", account).
			Uint64("block_height", height).
			Msg("no balance registered, using zero")
		return numeric.U128{}, nil
	}
	return balance, err
}

func (o *Oracle) ftBalanceOf(ctx context.Context, contract, account string, height uint64) (numeric.U128, error) {
	block := AtHeight(height)
	res, err := o.client.CallFunction(ctx, contract, methodFTBalanceOf, map[string]string{"account_id": account}, block)
	if err != nil {
		return numeric.U128{}, chainError(err, contract, block)
	}

	if res.BlockHeight != height {
		return numeric.U128{}, &ChainQueryError{
			Kind:     KindHeightMismatch,
			Contract: contract,
			Block:    block.String(),
			Message:  fmt.Sprintf("node answered at height %d", res.BlockHeight),
		}
	}

	var raw *string
	if err := json.Unmarshal(res.Result, &raw); err != nil {
		return numeric.U128{}, &ChainQueryError{
			Kind:     KindMalformedResult,
			Contract: contract,
			Block:    block.String(),
			Message:  fmt.Sprintf("%s result %q: %v", methodFTBalanceOf, res.Result, err),
		}
	}
	if raw == nil {
		return numeric.U128{}, ErrNoBalanceRegistered
	}

	balance, err := numeric.ToUint128(*raw)
	if err != nil {
		return numeric.U128{}, fmt.Errorf("%s of %s on %s: %w", methodFTBalanceOf, account, contract, err)
	}
	return balance, nil
}

// FTMetadata returns the current NEP-148 metadata of contract.
func (o *Oracle) FTMetadata(ctx context.Context, contract string) (*domain.CoinMetadata, error) {
	block := Final()
	res, err := o.client.CallFunction(ctx, contract, methodFTMetadata, struct{}{}, block)
	if err != nil {
		return nil, chainError(err, contract, block)
	}

	var meta ftMetadata
	if err := json.Unmarshal(res.Result, &meta); err != nil {
		return nil, &ChainQueryError{
			Kind:     KindMalformedResult,
			Contract: contract,
			Block:    block.String(),
			Message:  fmt.Sprintf("%s result: %v", methodFTMetadata, err),
		}
	}

	return &domain.CoinMetadata{
		Name:     meta.Name,
		Symbol:   meta.Symbol,
		Icon:     meta.Icon,
		Decimals: meta.Decimals,
	}, nil
}

// ftMetadata is the NEP-148 metadata object.
type ftMetadata struct {
	Spec          string  `json:"spec"`
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	Icon          *string `json:"icon"`
	Reference     *string `json:"reference"`
	ReferenceHash *string `json:"reference_hash"`
	Decimals      uint8   `json:"decimals"`
}

// Block returns the header of the referenced block with a validated hash.
func (o *Oracle) Block(ctx context.Context, ref BlockRef) (*domain.Block, error) {
	header, err := o.client.Block(ctx, ref)
	if err != nil {
		return nil, chainError(err, "", ref)
	}
	if _, err := domain.ParseBlockHash(header.Hash); err != nil {
		return nil, &ChainQueryError{
			Kind:    KindMalformedResult,
			Block:   ref.String(),
			Message: err.Error(),
		}
	}
	if ref.Height != nil && header.Height != *ref.Height {
		return nil, &ChainQueryError{
			Kind:    KindHeightMismatch,
			Block:   ref.String(),
			Message: fmt.Sprintf("node answered at height %d", header.Height),
		}
	}
	return &domain.Block{Height: header.Height, Timestamp: header.Timestamp, Hash: header.Hash}, nil
}
