package batch

import "chain_reader/internal/infrastructure/abicodec"

// Read methods used by the builder. getEthBalance is served by the aggregator contract itself.
var (
	nameMethod          = abicodec.MustParseSignature("name()(string)")
	symbolMethod        = abicodec.MustParseSignature("symbol()(string)")
	decimalsMethod      = abicodec.MustParseSignature("decimals()(uint8)")
	balanceOfMethod     = abicodec.MustParseSignature("balanceOf(address)(uint256)")
	getEthBalanceMethod = abicodec.MustParseSignature("getEthBalance(address)(uint256)")
)
