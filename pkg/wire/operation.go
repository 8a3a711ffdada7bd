package wire

// Operation 是请求的操作标签。
type Operation string

const (
	OpUnknown                   Operation = "unknown"
	OpGetAppInfo                Operation = "getAppInfo"
	OpWalletLanguage            Operation = "walletLanguage"
	OpGetEosBalance             Operation = "getEosBalance"
	OpGetWalletWithAccount      Operation = "getWalletWithAccount"
	OpRequestSignature          Operation = "requestSignature"
	OpAuthenticate              Operation = "authenticate"
	OpGetArbitrarySignature     Operation = "getArbitrarySignature"
	OpRequestArbitrarySignature Operation = "requestArbitrarySignature"
	OpPushTransfer              Operation = "pushTransfer"
	OpPushActions               Operation = "pushActions"
	OpIdentityFromPermissions   Operation = "identityFromPermissions"
	OpGetOrRequestIdentity      Operation = "getOrRequestIdentity"
)

var knownOperations = map[Operation]struct{}{
	OpGetAppInfo:                {},
	OpWalletLanguage:            {},
	OpGetEosBalance:             {},
	OpGetWalletWithAccount:      {},
	OpRequestSignature:          {},
	OpAuthenticate:              {},
	OpGetArbitrarySignature:     {},
	OpRequestArbitrarySignature: {},
	OpPushTransfer:              {},
	OpPushActions:               {},
	OpIdentityFromPermissions:   {},
	OpGetOrRequestIdentity:      {},
}

// ParseOperation 将方法名转换为操作标签，无法识别时返回 OpUnknown。
func ParseOperation(name string) Operation {
	op := Operation(name)
	if _, ok := knownOperations[op]; ok {
		return op
	}
	return OpUnknown
}

// Operations 返回所有已知操作。
func Operations() []Operation {
	return []Operation{
		OpGetAppInfo,
		OpWalletLanguage,
		OpGetEosBalance,
		OpGetWalletWithAccount,
		OpRequestSignature,
		OpAuthenticate,
		OpGetArbitrarySignature,
		OpRequestArbitrarySignature,
		OpPushTransfer,
		OpPushActions,
		OpIdentityFromPermissions,
		OpGetOrRequestIdentity,
	}
}

func (o Operation) String() string { return string(o) }
