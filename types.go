package nearrpc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

type (
	// AccountID is a NEAR account name, e.g. "alice.near".
	AccountID = string
	// CryptoHash is a base58 encoded sha256 hash.
	CryptoHash = string
	// Balance is a yoctoNEAR amount. Nodes send u128 values as decimal strings.
	Balance = string
	ShardID = uint64
)

// BlockID is a block height or a block hash. It marshals as a JSON number or
// string respectively.
type BlockID struct {
	Height uint64
	Hash   CryptoHash
}

func BlockHeight(height uint64) BlockID { return BlockID{Height: height} }

func BlockHash(hash CryptoHash) BlockID { return BlockID{Hash: hash} }

func (b BlockID) String() string {
	if b.Hash != "" {
		return b.Hash
	}
	return strconv.FormatUint(b.Height, 10)
}

func (b BlockID) MarshalJSON() ([]byte, error) {
	if b.Hash != "" {
		return json.Marshal(b.Hash)
	}
	return json.Marshal(b.Height)
}

func (b *BlockID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		*b = BlockID{}
		return json.Unmarshal(data, &b.Hash)
	}
	*b = BlockID{}
	if err := json.Unmarshal(data, &b.Height); err != nil {
		return fmt.Errorf("block id: %w", err)
	}
	return nil
}

// ParseBlockID reads a height if s is numeric and a hash otherwise.
func ParseBlockID(s string) BlockID {
	if h, err := strconv.ParseUint(s, 10, 64); err == nil {
		return BlockHeight(h)
	}
	return BlockHash(s)
}

type Finality string

const (
	FinalityOptimistic Finality = "optimistic"
	FinalityNearFinal  Finality = "near-final"
	FinalityFinal      Finality = "final"
)

type SyncCheckpoint string

const (
	SyncCheckpointGenesis           SyncCheckpoint = "genesis"
	SyncCheckpointEarliestAvailable SyncCheckpoint = "earliest_available"
)

// BlockReference selects a block by id, finality or sync checkpoint. Exactly
// one field should be set; use the constructors.
type BlockReference struct {
	BlockID        *BlockID       `json:"block_id,omitempty"`
	Finality       Finality       `json:"finality,omitempty"`
	SyncCheckpoint SyncCheckpoint `json:"sync_checkpoint,omitempty"`
}

func BlockRefID(id BlockID) BlockReference { return BlockReference{BlockID: &id} }

func BlockRefFinality(f Finality) BlockReference { return BlockReference{Finality: f} }

func BlockRefSyncCheckpoint(s SyncCheckpoint) BlockReference {
	return BlockReference{SyncCheckpoint: s}
}

// ChunkID is either a (block, shard) pair or a chunk hash.
type ChunkID struct {
	BlockID *BlockID
	ShardID ShardID
	Hash    CryptoHash
}

func ChunkInBlock(block BlockID, shard ShardID) ChunkID {
	return ChunkID{BlockID: &block, ShardID: shard}
}

func ChunkHash(hash CryptoHash) ChunkID { return ChunkID{Hash: hash} }

func (c ChunkID) MarshalJSON() ([]byte, error) {
	if c.Hash != "" {
		return json.Marshal(c.Hash)
	}
	if c.BlockID == nil {
		return nil, fmt.Errorf("chunk id: neither hash nor block set")
	}
	return json.Marshal([]any{*c.BlockID, c.ShardID})
}

type StatusResponse struct {
	Version               Version         `json:"version"`
	ChainID               string          `json:"chain_id"`
	ProtocolVersion       uint32          `json:"protocol_version"`
	LatestProtocolVersion uint32          `json:"latest_protocol_version"`
	RPCAddr               *string         `json:"rpc_addr"`
	Validators            []ValidatorInfo `json:"validators"`
	SyncInfo              StatusSyncInfo  `json:"sync_info"`
	ValidatorAccountID    *AccountID      `json:"validator_account_id"`
	ValidatorPublicKey    *string         `json:"validator_public_key"`
	NodePublicKey         string          `json:"node_public_key,omitempty"`
	NodeKey               *string         `json:"node_key"`
	Uptime                uint64          `json:"uptime_sec,omitempty"`
	DetailedDebugStatus   json.RawMessage `json:"detailed_debug_status,omitempty"`
}

type Version struct {
	Version      string `json:"version"`
	Build        string `json:"build"`
	RustcVersion string `json:"rustc_version,omitempty"`
}

type ValidatorInfo struct {
	AccountID AccountID `json:"account_id"`
	IsSlashed bool      `json:"is_slashed,omitempty"`
}

type StatusSyncInfo struct {
	LatestBlockHash     CryptoHash  `json:"latest_block_hash"`
	LatestBlockHeight   uint64      `json:"latest_block_height"`
	LatestStateRoot     CryptoHash  `json:"latest_state_root"`
	LatestBlockTime     string      `json:"latest_block_time"`
	Syncing             bool        `json:"syncing"`
	EarliestBlockHash   *CryptoHash `json:"earliest_block_hash"`
	EarliestBlockHeight *uint64     `json:"earliest_block_height"`
	EarliestBlockTime   *string     `json:"earliest_block_time"`
	EpochID             *CryptoHash `json:"epoch_id"`
	EpochStartHeight    *uint64     `json:"epoch_start_height"`
}

type BlockView struct {
	Author AccountID         `json:"author"`
	Header BlockHeaderView   `json:"header"`
	Chunks []ChunkHeaderView `json:"chunks"`
}

type BlockHeaderView struct {
	Height                uint64     `json:"height"`
	PrevHeight            *uint64    `json:"prev_height"`
	EpochID               CryptoHash `json:"epoch_id"`
	NextEpochID           CryptoHash `json:"next_epoch_id"`
	Hash                  CryptoHash `json:"hash"`
	PrevHash              CryptoHash `json:"prev_hash"`
	PrevStateRoot         CryptoHash `json:"prev_state_root"`
	ChunkReceiptsRoot     CryptoHash `json:"chunk_receipts_root,omitempty"`
	ChunkHeadersRoot      CryptoHash `json:"chunk_headers_root,omitempty"`
	ChunkTxRoot           CryptoHash `json:"chunk_tx_root,omitempty"`
	OutcomeRoot           CryptoHash `json:"outcome_root,omitempty"`
	ChunksIncluded        uint64     `json:"chunks_included"`
	Timestamp             uint64     `json:"timestamp"`
	TimestampNanosec      string     `json:"timestamp_nanosec"`
	RandomValue           CryptoHash `json:"random_value,omitempty"`
	GasPrice              Balance    `json:"gas_price"`
	TotalSupply           Balance    `json:"total_supply"`
	LatestProtocolVersion uint32     `json:"latest_protocol_version"`
	LastFinalBlock        CryptoHash `json:"last_final_block,omitempty"`
	LastDSFinalBlock      CryptoHash `json:"last_ds_final_block,omitempty"`
	NextBPHash            CryptoHash `json:"next_bp_hash,omitempty"`
	BlockMerkleRoot       CryptoHash `json:"block_merkle_root,omitempty"`
	Approvals             []*string  `json:"approvals"`
	Signature             string     `json:"signature,omitempty"`
}

type ChunkHeaderView struct {
	ChunkHash            CryptoHash           `json:"chunk_hash"`
	PrevBlockHash        CryptoHash           `json:"prev_block_hash"`
	OutcomeRoot          CryptoHash           `json:"outcome_root,omitempty"`
	PrevStateRoot        CryptoHash           `json:"prev_state_root,omitempty"`
	EncodedMerkleRoot    CryptoHash           `json:"encoded_merkle_root,omitempty"`
	EncodedLength        uint64               `json:"encoded_length,omitempty"`
	HeightCreated        uint64               `json:"height_created"`
	HeightIncluded       uint64               `json:"height_included"`
	ShardID              ShardID              `json:"shard_id"`
	GasUsed              uint64               `json:"gas_used"`
	GasLimit             uint64               `json:"gas_limit"`
	BalanceBurnt         Balance              `json:"balance_burnt,omitempty"`
	OutgoingReceiptsRoot CryptoHash           `json:"outgoing_receipts_root,omitempty"`
	TxRoot               CryptoHash           `json:"tx_root,omitempty"`
	ValidatorProposals   []ValidatorStakeView `json:"validator_proposals"`
	Signature            string               `json:"signature,omitempty"`
}

type ChunkView struct {
	Author       AccountID               `json:"author"`
	Header       ChunkHeaderView         `json:"header"`
	Transactions []SignedTransactionView `json:"transactions"`
	Receipts     []ReceiptView           `json:"receipts"`
}

type SignedTransactionView struct {
	SignerID    AccountID         `json:"signer_id"`
	PublicKey   string            `json:"public_key"`
	Nonce       uint64            `json:"nonce"`
	ReceiverID  AccountID         `json:"receiver_id"`
	Actions     []json.RawMessage `json:"actions"`
	Signature   string            `json:"signature"`
	Hash        CryptoHash        `json:"hash"`
	PriorityFee uint64            `json:"priority_fee,omitempty"`
}

// ReceiptView is also the result of EXPERIMENTAL_receipt.
type ReceiptView struct {
	PredecessorID AccountID       `json:"predecessor_id"`
	ReceiverID    AccountID       `json:"receiver_id"`
	ReceiptID     CryptoHash      `json:"receipt_id"`
	Receipt       json.RawMessage `json:"receipt"`
	Priority      uint64          `json:"priority,omitempty"`
}

type GasPriceView struct {
	GasPrice Balance `json:"gas_price"`
}

type EpochValidatorInfo struct {
	CurrentValidators []CurrentEpochValidatorInfo `json:"current_validators"`
	NextValidators    []NextEpochValidatorInfo    `json:"next_validators"`
	CurrentFishermen  []ValidatorStakeView        `json:"current_fishermen"`
	NextFishermen     []ValidatorStakeView        `json:"next_fishermen"`
	CurrentProposals  []ValidatorStakeView        `json:"current_proposals"`
	PrevEpochKickout  []json.RawMessage           `json:"prev_epoch_kickout"`
	EpochStartHeight  uint64                      `json:"epoch_start_height"`
	EpochHeight       uint64                      `json:"epoch_height"`
}

type CurrentEpochValidatorInfo struct {
	AccountID         AccountID `json:"account_id"`
	PublicKey         string    `json:"public_key"`
	IsSlashed         bool      `json:"is_slashed"`
	Stake             Balance   `json:"stake"`
	Shards            []ShardID `json:"shards"`
	NumProducedBlocks uint64    `json:"num_produced_blocks"`
	NumExpectedBlocks uint64    `json:"num_expected_blocks"`
	NumProducedChunks uint64    `json:"num_produced_chunks,omitempty"`
	NumExpectedChunks uint64    `json:"num_expected_chunks,omitempty"`
}

type NextEpochValidatorInfo struct {
	AccountID AccountID `json:"account_id"`
	PublicKey string    `json:"public_key"`
	Stake     Balance   `json:"stake"`
	Shards    []ShardID `json:"shards"`
}

type ValidatorStakeView struct {
	AccountID AccountID `json:"account_id"`
	PublicKey string    `json:"public_key"`
	Stake     Balance   `json:"stake"`
	// StructVersion is "V1" on current nodes.
	StructVersion string `json:"validator_stake_struct_version,omitempty"`
}

type FinalExecutionOutcomeView struct {
	// Status is one of "NotStarted", "Started", {"Failure": ..} or
	// {"SuccessValue": "<base64>"}.
	Status             json.RawMessage              `json:"status"`
	Transaction        SignedTransactionView        `json:"transaction"`
	TransactionOutcome ExecutionOutcomeWithIDView   `json:"transaction_outcome"`
	ReceiptsOutcome    []ExecutionOutcomeWithIDView `json:"receipts_outcome"`
}

// SuccessValue returns the decoded return value of a successful transaction.
func (o FinalExecutionOutcomeView) SuccessValue() ([]byte, bool) {
	var s struct {
		SuccessValue *string `json:"SuccessValue"`
	}
	if err := json.Unmarshal(o.Status, &s); err != nil || s.SuccessValue == nil {
		return nil, false
	}
	b, err := base64.StdEncoding.DecodeString(*s.SuccessValue)
	if err != nil {
		return nil, false
	}
	return b, true
}

// Failure returns the failure object if the transaction failed.
func (o FinalExecutionOutcomeView) Failure() (json.RawMessage, bool) {
	var s struct {
		Failure json.RawMessage `json:"Failure"`
	}
	if err := json.Unmarshal(o.Status, &s); err != nil || len(s.Failure) == 0 {
		return nil, false
	}
	return s.Failure, true
}

type ExecutionOutcomeWithIDView struct {
	Proof     []json.RawMessage    `json:"proof"`
	BlockHash CryptoHash           `json:"block_hash"`
	ID        CryptoHash           `json:"id"`
	Outcome   ExecutionOutcomeView `json:"outcome"`
}

type ExecutionOutcomeView struct {
	Logs        []string        `json:"logs"`
	ReceiptIDs  []CryptoHash    `json:"receipt_ids"`
	GasBurnt    uint64          `json:"gas_burnt"`
	TokensBurnt Balance         `json:"tokens_burnt"`
	ExecutorID  AccountID       `json:"executor_id"`
	Status      json.RawMessage `json:"status"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

type QueryRequestType string

const (
	ViewAccountRequest       QueryRequestType = "view_account"
	ViewCodeRequest          QueryRequestType = "view_code"
	ViewStateRequest         QueryRequestType = "view_state"
	ViewAccessKeyRequest     QueryRequestType = "view_access_key"
	ViewAccessKeyListRequest QueryRequestType = "view_access_key_list"
	CallFunctionRequest      QueryRequestType = "call_function"
)

// QueryRequest is the object form of a query call. The block reference and
// the request fields share one JSON object.
type QueryRequest struct {
	BlockReference
	RequestType  QueryRequestType `json:"request_type"`
	AccountID    AccountID        `json:"account_id,omitempty"`
	PublicKey    string           `json:"public_key,omitempty"`
	PrefixBase64 *string          `json:"prefix_base64,omitempty"`
	IncludeProof bool             `json:"include_proof,omitempty"`
	MethodName   string           `json:"method_name,omitempty"`
	ArgsBase64   *string          `json:"args_base64,omitempty"`
}

func ViewAccount(ref BlockReference, account AccountID) QueryRequest {
	return QueryRequest{BlockReference: ref, RequestType: ViewAccountRequest, AccountID: account}
}

func ViewCode(ref BlockReference, account AccountID) QueryRequest {
	return QueryRequest{BlockReference: ref, RequestType: ViewCodeRequest, AccountID: account}
}

func ViewState(ref BlockReference, account AccountID, prefix []byte) QueryRequest {
	p := base64.StdEncoding.EncodeToString(prefix)
	return QueryRequest{BlockReference: ref, RequestType: ViewStateRequest, AccountID: account, PrefixBase64: &p}
}

func ViewAccessKey(ref BlockReference, account AccountID, publicKey string) QueryRequest {
	return QueryRequest{BlockReference: ref, RequestType: ViewAccessKeyRequest, AccountID: account, PublicKey: publicKey}
}

func ViewAccessKeyList(ref BlockReference, account AccountID) QueryRequest {
	return QueryRequest{BlockReference: ref, RequestType: ViewAccessKeyListRequest, AccountID: account}
}

func CallFunction(ref BlockReference, account AccountID, method string, args []byte) QueryRequest {
	a := base64.StdEncoding.EncodeToString(args)
	return QueryRequest{
		BlockReference: ref,
		RequestType:    CallFunctionRequest,
		AccountID:      account,
		MethodName:     method,
		ArgsBase64:     &a,
	}
}

// QueryResponse holds the block a query ran at plus the kind specific body.
// Use Decode with AccountView, AccessKeyView, CallFunctionResult or
// ViewStateResult to read it.
type QueryResponse struct {
	BlockHeight uint64     `json:"block_height"`
	BlockHash   CryptoHash `json:"block_hash"`

	raw json.RawMessage
}

func (r *QueryResponse) UnmarshalJSON(data []byte) error {
	type header QueryResponse
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	*r = QueryResponse(h)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (r QueryResponse) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	type header QueryResponse
	return json.Marshal(header(r))
}

// Decode unmarshals the full response into v.
func (r QueryResponse) Decode(v any) error {
	if len(r.raw) == 0 {
		return fmt.Errorf("query response is empty")
	}
	return json.Unmarshal(r.raw, v)
}

type AccountView struct {
	Amount        Balance    `json:"amount"`
	Locked        Balance    `json:"locked"`
	CodeHash      CryptoHash `json:"code_hash"`
	StorageUsage  uint64     `json:"storage_usage"`
	StoragePaidAt uint64     `json:"storage_paid_at"`
}

type AccessKeyView struct {
	Nonce      uint64          `json:"nonce"`
	Permission json.RawMessage `json:"permission"`
}

type CallFunctionResult struct {
	// Result is sent as an array of byte values, not base64.
	Result []int    `json:"result"`
	Logs   []string `json:"logs"`
}

func (r CallFunctionResult) Bytes() []byte {
	b := make([]byte, len(r.Result))
	for i, v := range r.Result {
		b[i] = byte(v)
	}
	return b
}

type ViewStateResult struct {
	Values []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"values"`
	Proof []string `json:"proof,omitempty"`
}

type StateChangesType string

const (
	AccountChanges         StateChangesType = "account_changes"
	SingleAccessKeyChanges StateChangesType = "single_access_key_changes"
	AllAccessKeyChanges    StateChangesType = "all_access_key_changes"
	ContractCodeChanges    StateChangesType = "contract_code_changes"
	DataChanges            StateChangesType = "data_changes"
)

type StateChangesRequest struct {
	BlockReference
	ChangesType     StateChangesType `json:"changes_type"`
	AccountIDs      []AccountID      `json:"account_ids"`
	KeyPrefixBase64 *string          `json:"key_prefix_base64,omitempty"`
}

type StateChangesResponse struct {
	BlockHash CryptoHash                 `json:"block_hash"`
	Changes   []StateChangeWithCauseView `json:"changes"`
}

type StateChangeWithCauseView struct {
	Cause  json.RawMessage `json:"cause"`
	Type   string          `json:"type"`
	Change json.RawMessage `json:"change"`
}

type ValidatorsOrderedRequest struct {
	// BlockID nil selects the latest block; it is sent as null.
	BlockID *BlockID `json:"block_id"`
}

type ReceiptRequest struct {
	ReceiptID CryptoHash `json:"receipt_id"`
}

type ProtocolConfigRequest struct {
	BlockReference
}

type ProtocolConfigView struct {
	ProtocolVersion                 uint32          `json:"protocol_version"`
	GenesisTime                     string          `json:"genesis_time"`
	ChainID                         string          `json:"chain_id"`
	GenesisHeight                   uint64          `json:"genesis_height"`
	NumBlockProducerSeats           uint64          `json:"num_block_producer_seats"`
	EpochLength                     uint64          `json:"epoch_length"`
	MinGasPrice                     Balance         `json:"min_gas_price"`
	MaxGasPrice                     Balance         `json:"max_gas_price"`
	TransactionValidityPeriod       uint64          `json:"transaction_validity_period"`
	ProtocolTreasuryAccount         AccountID       `json:"protocol_treasury_account,omitempty"`
	MaxInflationRate                json.RawMessage `json:"max_inflation_rate,omitempty"`
	ProtocolRewardRate              json.RawMessage `json:"protocol_reward_rate,omitempty"`
	OnlineMinThreshold              json.RawMessage `json:"online_min_threshold,omitempty"`
	RuntimeConfig                   json.RawMessage `json:"runtime_config"`
	ShardLayout                     json.RawMessage `json:"shard_layout,omitempty"`
	AvgHiddenValidatorSeatsPerShard []uint64        `json:"avg_hidden_validator_seats_per_shard"`
}
