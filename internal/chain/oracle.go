// Package chain talks to the Solana RPC node that serves as the asset
// ownership oracle. The rest of the service only depends on the AssetOracle
// interface; the DAS-backed client here is one implementation.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Asset is one digital asset held by a wallet. CollectionKey is empty when
// the asset is not grouped under a verified collection.
type Asset struct {
	Mint          string
	CollectionKey string
}

// AssetOracle enumerates the digital assets a wallet holds.
type AssetOracle interface {
	ListOwnedAssets(ctx context.Context, walletAddress string) ([]Asset, error)
}

const (
	dasPageLimit   = 1000
	requestTimeout = 15 * time.Second
)

// DASOracle implements AssetOracle against the Digital Asset Standard
// getAssetsByOwner RPC method.
type DASOracle struct {
	endpoint string
	client   *http.Client
}

func NewDASOracle(endpoint string) *DASOracle {
	return &DASOracle{
		endpoint: endpoint,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type assetsByOwnerParams struct {
	OwnerAddress string `json:"ownerAddress"`
	Page         int    `json:"page"`
	Limit        int    `json:"limit"`
}

type rpcResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Result struct {
		Total int `json:"total"`
		Items []struct {
			ID       string `json:"id"`
			Grouping []struct {
				GroupKey   string `json:"group_key"`
				GroupValue string `json:"group_value"`
			} `json:"grouping"`
		} `json:"items"`
	} `json:"result"`
}

// ListOwnedAssets pages through getAssetsByOwner until the node reports no
// further items.
func (o *DASOracle) ListOwnedAssets(ctx context.Context, walletAddress string) ([]Asset, error) {
	var assets []Asset
	for page := 1; ; page++ {
		resp, err := o.fetchPage(ctx, walletAddress, page)
		if err != nil {
			return nil, err
		}
		for _, item := range resp.Result.Items {
			asset := Asset{Mint: item.ID}
			for _, g := range item.Grouping {
				if g.GroupKey == "collection" {
					asset.CollectionKey = g.GroupValue
					break
				}
			}
			assets = append(assets, asset)
		}
		if len(resp.Result.Items) < dasPageLimit {
			return assets, nil
		}
	}
}

func (o *DASOracle) fetchPage(ctx context.Context, walletAddress string, page int) (*rpcResponse, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  "getAssetsByOwner",
		Params: assetsByOwnerParams{
			OwnerAddress: walletAddress,
			Page:         page,
			Limit:        dasPageLimit,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("oracle: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("oracle: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle: rpc call failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("oracle: rpc status %d: %s", httpResp.StatusCode, string(raw))
	}

	var resp rpcResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("oracle: failed to decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("oracle: rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return &resp, nil
}

// HoldsCollectionAsset reports whether any asset the oracle returns for the
// wallet belongs to the given collection.
func HoldsCollectionAsset(ctx context.Context, oracle AssetOracle, walletAddress, collectionKey string) (bool, error) {
	assets, err := oracle.ListOwnedAssets(ctx, walletAddress)
	if err != nil {
		return false, err
	}
	for _, a := range assets {
		if a.CollectionKey != "" && a.CollectionKey == collectionKey {
			return true, nil
		}
	}
	return false, nil
}
