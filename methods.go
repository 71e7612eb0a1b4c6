package nearrpc

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/sebamiro/nearrpc/internal/rpc"
)

// Methods
const (
	MethodBroadcastTxAsync              = "broadcast_tx_async"
	MethodBroadcastTxCommit             = "broadcast_tx_commit"
	MethodStatus                        = "status"
	MethodHealth                        = "health"
	MethodTx                            = "tx"
	MethodChunk                         = "chunk"
	MethodValidators                    = "validators"
	MethodGasPrice                      = "gas_price"
	MethodQuery                         = "query"
	MethodBlock                         = "block"
	MethodExperimentalCheckTx           = "EXPERIMENTAL_check_tx"
	MethodExperimentalGenesisConfig     = "EXPERIMENTAL_genesis_config"
	MethodExperimentalBroadcastTxSync   = "EXPERIMENTAL_broadcast_tx_sync"
	MethodExperimentalTxStatus          = "EXPERIMENTAL_tx_status"
	MethodExperimentalChanges           = "EXPERIMENTAL_changes"
	MethodExperimentalValidatorsOrdered = "EXPERIMENTAL_validators_ordered"
	MethodExperimentalReceipt           = "EXPERIMENTAL_receipt"
	MethodExperimentalProtocolConfig    = "EXPERIMENTAL_protocol_config"
)

// Method describes one supported remote operation: the Client method
// implementing it, the JSON-RPC method it calls and its param and result types.
type Method struct {
	Op     string
	Name   string
	Params reflect.Type
	Result reflect.Type
}

// Nullary reports whether the method takes no parameters.
func (m Method) Nullary() bool { return m.Params == reflect.TypeFor[NoParams]() }

// Methods is the table of remote operations supported by Client.
var Methods = []Method{
	{"BroadcastTxAsync", MethodBroadcastTxAsync, reflect.TypeFor[[1]string](), reflect.TypeFor[CryptoHash]()},
	{"BroadcastTxCommit", MethodBroadcastTxCommit, reflect.TypeFor[[1]string](), reflect.TypeFor[FinalExecutionOutcomeView]()},
	{"Status", MethodStatus, reflect.TypeFor[NoParams](), reflect.TypeFor[StatusResponse]()},
	{"ExperimentalCheckTx", MethodExperimentalCheckTx, reflect.TypeFor[[1]string](), reflect.TypeFor[json.RawMessage]()},
	{"ExperimentalGenesisConfig", MethodExperimentalGenesisConfig, reflect.TypeFor[NoParams](), reflect.TypeFor[json.RawMessage]()},
	{"ExperimentalBroadcastTxSync", MethodExperimentalBroadcastTxSync, reflect.TypeFor[[1]string](), reflect.TypeFor[json.RawMessage]()},
	{"ExperimentalTxStatus", MethodExperimentalTxStatus, reflect.TypeFor[[1]string](), reflect.TypeFor[json.RawMessage]()},
	{"Health", MethodHealth, reflect.TypeFor[NoParams](), reflect.TypeFor[struct{}]()},
	{"Tx", MethodTx, reflect.TypeFor[[2]string](), reflect.TypeFor[FinalExecutionOutcomeView]()},
	{"Chunk", MethodChunk, reflect.TypeFor[[1]ChunkID](), reflect.TypeFor[ChunkView]()},
	{"Validators", MethodValidators, reflect.TypeFor[[1]*BlockID](), reflect.TypeFor[EpochValidatorInfo]()},
	{"GasPrice", MethodGasPrice, reflect.TypeFor[[1]*BlockID](), reflect.TypeFor[GasPriceView]()},
	{"QueryByPath", MethodQuery, reflect.TypeFor[[2]string](), reflect.TypeFor[QueryResponse]()},
	{"Query", MethodQuery, reflect.TypeFor[QueryRequest](), reflect.TypeFor[QueryResponse]()},
	{"BlockByID", MethodBlock, reflect.TypeFor[[1]BlockID](), reflect.TypeFor[BlockView]()},
	{"Block", MethodBlock, reflect.TypeFor[BlockReference](), reflect.TypeFor[BlockView]()},
	{"ExperimentalChanges", MethodExperimentalChanges, reflect.TypeFor[StateChangesRequest](), reflect.TypeFor[StateChangesResponse]()},
	{"ExperimentalValidatorsOrdered", MethodExperimentalValidatorsOrdered, reflect.TypeFor[ValidatorsOrderedRequest](), reflect.TypeFor[[]ValidatorStakeView]()},
	{"ExperimentalReceipt", MethodExperimentalReceipt, reflect.TypeFor[ReceiptRequest](), reflect.TypeFor[ReceiptView]()},
	{"ExperimentalProtocolConfig", MethodExperimentalProtocolConfig, reflect.TypeFor[ProtocolConfigRequest](), reflect.TypeFor[ProtocolConfigView]()},
}

// LookupMethod returns the first table entry calling the JSON-RPC method name.
func LookupMethod(name string) (Method, bool) {
	for _, m := range Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

func call[R, P any](ctx context.Context, c *Client, method string, params P) (*R, error) {
	r, err := rpc.Call[P, R](ctx, c.Client, method, params)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// BroadcastTxAsync submits a base64 encoded signed transaction and returns its
// hash without waiting for execution.
func (c *Client) BroadcastTxAsync(ctx context.Context, tx string) (CryptoHash, error) {
	return rpc.Call[[1]string, CryptoHash](ctx, c.Client, MethodBroadcastTxAsync, [1]string{tx})
}

// BroadcastTxCommit submits a base64 encoded signed transaction and waits
// until it is executed.
func (c *Client) BroadcastTxCommit(ctx context.Context, tx string) (*FinalExecutionOutcomeView, error) {
	return call[FinalExecutionOutcomeView](ctx, c, MethodBroadcastTxCommit, [1]string{tx})
}

// Status returns the node's version, chain and sync state.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	return call[StatusResponse](ctx, c, MethodStatus, NoParams{})
}

// ExperimentalCheckTx validates a base64 encoded signed transaction without
// submitting it.
func (c *Client) ExperimentalCheckTx(ctx context.Context, tx string) (json.RawMessage, error) {
	return rpc.Call[[1]string, json.RawMessage](ctx, c.Client, MethodExperimentalCheckTx, [1]string{tx})
}

// ExperimentalGenesisConfig returns the genesis config of the network.
// Result matches the result in the docs https://docs.near.org/api/rpc/protocol
func (c *Client) ExperimentalGenesisConfig(ctx context.Context) (json.RawMessage, error) {
	return rpc.Call[NoParams, json.RawMessage](ctx, c.Client, MethodExperimentalGenesisConfig, NoParams{})
}

// ExperimentalBroadcastTxSync submits a base64 encoded signed transaction
// and returns once it is validated.
func (c *Client) ExperimentalBroadcastTxSync(ctx context.Context, tx string) (json.RawMessage, error) {
	return rpc.Call[[1]string, json.RawMessage](ctx, c.Client, MethodExperimentalBroadcastTxSync, [1]string{tx})
}

// ExperimentalTxStatus returns the status of a transaction including its
// receipts.
func (c *Client) ExperimentalTxStatus(ctx context.Context, tx string) (json.RawMessage, error) {
	return rpc.Call[[1]string, json.RawMessage](ctx, c.Client, MethodExperimentalTxStatus, [1]string{tx})
}

// Health returns nil if the node reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	_, err := rpc.Call[NoParams, struct{}](ctx, c.Client, MethodHealth, NoParams{})
	return err
}

// Tx returns the outcome of the transaction hash sent by sender.
func (c *Client) Tx(ctx context.Context, hash CryptoHash, sender AccountID) (*FinalExecutionOutcomeView, error) {
	return call[FinalExecutionOutcomeView](ctx, c, MethodTx, [2]string{hash, sender})
}

// Chunk returns the chunk selected by id, either a (block, shard) pair or a
// chunk hash.
// Result matches the result in the docs https://docs.near.org/api/rpc/block-chunk
func (c *Client) Chunk(ctx context.Context, id ChunkID) (*ChunkView, error) {
	return call[ChunkView](ctx, c, MethodChunk, [1]ChunkID{id})
}

// Validators returns the validators of the epoch containing block. A nil
// block selects the latest one.
func (c *Client) Validators(ctx context.Context, block *BlockID) (*EpochValidatorInfo, error) {
	return call[EpochValidatorInfo](ctx, c, MethodValidators, [1]*BlockID{block})
}

// GasPrice returns the gas price at block, or at the latest block if nil.
func (c *Client) GasPrice(ctx context.Context, block *BlockID) (*GasPriceView, error) {
	return call[GasPriceView](ctx, c, MethodGasPrice, [1]*BlockID{block})
}

// QueryByPath runs the legacy positional form of query, e.g. path
// "account/alice.near" with empty data.
func (c *Client) QueryByPath(ctx context.Context, path, data string) (*QueryResponse, error) {
	return call[QueryResponse](ctx, c, MethodQuery, [2]string{path, data})
}

// Query runs a view request such as ViewAccount or CallFunction against the
// state at the requested block.
// Result matches the result in the docs https://docs.near.org/api/rpc/contracts
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	return call[QueryResponse](ctx, c, MethodQuery, req)
}

// BlockByID returns the block with the given height or hash.
func (c *Client) BlockByID(ctx context.Context, id BlockID) (*BlockView, error) {
	return call[BlockView](ctx, c, MethodBlock, [1]BlockID{id})
}

// Block returns the block selected by ref.
// Result matches the result in the docs https://docs.near.org/api/rpc/block-chunk
func (c *Client) Block(ctx context.Context, ref BlockReference) (*BlockView, error) {
	return call[BlockView](ctx, c, MethodBlock, ref)
}

// ExperimentalChanges returns the state changes of the requested kind in a
// block.
func (c *Client) ExperimentalChanges(ctx context.Context, req StateChangesRequest) (*StateChangesResponse, error) {
	return call[StateChangesResponse](ctx, c, MethodExperimentalChanges, req)
}

// ExperimentalValidatorsOrdered returns the block producers ordered by stake.
func (c *Client) ExperimentalValidatorsOrdered(ctx context.Context, req ValidatorsOrderedRequest) ([]ValidatorStakeView, error) {
	return rpc.Call[ValidatorsOrderedRequest, []ValidatorStakeView](ctx, c.Client, MethodExperimentalValidatorsOrdered, req)
}

// ExperimentalReceipt returns a receipt by id.
func (c *Client) ExperimentalReceipt(ctx context.Context, req ReceiptRequest) (*ReceiptView, error) {
	return call[ReceiptView](ctx, c, MethodExperimentalReceipt, req)
}

// ExperimentalProtocolConfig returns the protocol config in effect at the
// requested block.
// Result matches the result in the docs https://docs.near.org/api/rpc/protocol
func (c *Client) ExperimentalProtocolConfig(ctx context.Context, req ProtocolConfigRequest) (*ProtocolConfigView, error) {
	return call[ProtocolConfigView](ctx, c, MethodExperimentalProtocolConfig, req)
}
