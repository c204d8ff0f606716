package solbc

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// TokenErrorNames maps SPL Token program custom error numbers to their names.
var TokenErrorNames = map[int]string{
	0:  "NotRentExempt",
	1:  "InsufficientFunds",
	2:  "InvalidMint",
	3:  "MintMismatch",
	4:  "OwnerMismatch",
	5:  "FixedSupply",
	6:  "AlreadyInUse",
	7:  "InvalidNumberOfProvidedSigners",
	8:  "InvalidNumberOfRequiredSigners",
	9:  "UninitializedState",
	10: "NativeNotSupported",
	11: "NonNativeHasBalance",
	12: "InvalidInstruction",
	13: "InvalidState",
	14: "Overflow",
	15: "AuthorityTypeNotSupported",
	16: "MintCannotFreeze",
	17: "AccountFrozen",
	18: "MintDecimalsMismatch",
	19: "NonNativeNotSupported",
}

var customErrorRe = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)

// TransferFailure describes why a submitted token transfer was rejected.
type TransferFailure struct {
	Simulated bool     // rejected during preflight
	Code      int      // SPL token error number, -1 if unknown
	Name      string   // SPL token error name
	Message   string   // RPC message
	Logs      []string // program logs, if returned
	Cause     error
}

func (f *TransferFailure) Error() string {
	if f.Name != "" {
		return fmt.Sprintf("token program error %d (%s): %s", f.Code, f.Name, f.Message)
	}
	return f.Message
}

func (f *TransferFailure) Unwrap() error { return f.Cause }

// ErrorAnalyzer provides methods to analyze Solana transaction errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// AnalyzeTransferError extracts the token program failure from an RPC send error.
func (ea *ErrorAnalyzer) AnalyzeTransferError(err error) *TransferFailure {
	if err == nil {
		return nil
	}
	failure := &TransferFailure{Code: -1, Message: err.Error(), Cause: err}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		ea.matchCustomError(failure, failure.Message)
		return failure
	}

	failure.Message = rpcErr.Message
	if strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		failure.Simulated = true
	}
	ea.matchCustomError(failure, rpcErr.Message)

	if dataMap, ok := rpcErr.Data.(map[string]interface{}); ok {
		if logs, ok := dataMap["logs"].([]interface{}); ok {
			for _, entry := range logs {
				line, ok := entry.(string)
				if !ok {
					continue
				}
				failure.Logs = append(failure.Logs, line)
				if failure.Name == "" {
					ea.matchCustomError(failure, line)
				}
			}
		}
	}

	if failure.Name != "" {
		ea.logger.Warn("Token program error detected",
			zap.Int("code", failure.Code),
			zap.String("name", failure.Name),
			zap.Bool("simulated", failure.Simulated))
	}
	return failure
}

func (ea *ErrorAnalyzer) matchCustomError(f *TransferFailure, s string) {
	m := customErrorRe.FindStringSubmatch(s)
	if m == nil {
		if strings.Contains(s, "Error: insufficient funds") {
			f.Code, f.Name = 1, TokenErrorNames[1]
		}
		return
	}
	code, err := strconv.ParseInt(m[1], 16, 32)
	if err != nil {
		return
	}
	f.Code = int(code)
	f.Name = TokenErrorNames[f.Code]
	if f.Name == "" {
		f.Name = "Unknown"
	}
}
