package paymentmonitor

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/paywatch/paywatch/internal/domain"
	"github.com/paywatch/paywatch/pkg/currency"
)

const solDecimals = 9

// observedTransfer is a validated transfer extracted from a parsed
// transaction: how much landed on the invoice recipient and who paid.
type observedTransfer struct {
	Amount decimal.Decimal // human units of the invoice token
	Payer  solana.PublicKey
}

// matchTransfer validates a parsed transaction against an invoice. It returns
// nil when the transaction is not a qualifying payment: wrong recipient,
// wrong mint, amount below the requested amount, or an on-chain failure. A
// non-match is never an error; the transaction may belong to another invoice.
func matchTransfer(invoice domain.Invoice, token domain.TokenInfo, tx *domain.ParsedTransaction, amounts *currency.AmountUtils) *observedTransfer {
	if tx.Err != nil {
		return nil
	}
	if token.IsNative() {
		return matchNativeTransfer(invoice, tx, amounts)
	}
	return matchTokenTransfer(invoice, token, tx, amounts)
}

func matchNativeTransfer(invoice domain.Invoice, tx *domain.ParsedTransaction, amounts *currency.AmountUtils) *observedTransfer {
	recipient := invoice.Recipient.String()

	for i, key := range tx.AccountKeys {
		if key != recipient {
			continue
		}
		if i >= len(tx.PreBalances) || i >= len(tx.PostBalances) {
			return nil
		}

		delta := int64(tx.PostBalances[i]) - int64(tx.PreBalances[i])
		if delta <= 0 {
			return nil
		}

		observed := amounts.RawToHuman(delta, solDecimals)
		if !amounts.Covers(observed, invoice.Amount) {
			return nil
		}

		payer, err := nativePayer(tx)
		if err != nil {
			return nil
		}
		return &observedTransfer{Amount: observed, Payer: payer}
	}

	return nil
}

func matchTokenTransfer(invoice domain.Invoice, token domain.TokenInfo, tx *domain.ParsedTransaction, amounts *currency.AmountUtils) *observedTransfer {
	recipient := invoice.Recipient.String()
	mint := token.Mint.String()

	for _, post := range tx.PostTokenBalances {
		if post.Owner != recipient || post.Mint != mint {
			continue
		}

		postRaw, err := decimal.NewFromString(post.Amount.Amount)
		if err != nil {
			continue
		}
		preRaw := decimal.Zero
		for _, pre := range tx.PreTokenBalances {
			if pre.AccountIndex == post.AccountIndex {
				if v, err := decimal.NewFromString(pre.Amount.Amount); err == nil {
					preRaw = v
				}
				break
			}
		}

		delta := postRaw.Sub(preRaw)
		if !delta.IsPositive() {
			continue
		}

		observed := delta.Shift(int32(-token.Decimals))
		if !amounts.Covers(observed, invoice.Amount) {
			continue
		}

		return &observedTransfer{
			Amount: observed,
			Payer:  tokenPayer(tx, mint, post.AccountIndex),
		}
	}

	return nil
}

// nativePayer is the transaction's fee payer, the first account key.
func nativePayer(tx *domain.ParsedTransaction) (solana.PublicKey, error) {
	if len(tx.AccountKeys) == 0 {
		return solana.PublicKey{}, errNoAccounts
	}
	return solana.PublicKeyFromBase58(tx.AccountKeys[0])
}

// tokenPayer finds the owner whose token balance for the mint decreased.
// Falls back to the fee payer when the sender's account is not in the
// balance set.
func tokenPayer(tx *domain.ParsedTransaction, mint string, recipientIndex int) solana.PublicKey {
	for _, pre := range tx.PreTokenBalances {
		if pre.Mint != mint || pre.AccountIndex == recipientIndex {
			continue
		}
		preRaw, err := decimal.NewFromString(pre.Amount.Amount)
		if err != nil {
			continue
		}
		postRaw := decimal.Zero
		for _, post := range tx.PostTokenBalances {
			if post.AccountIndex == pre.AccountIndex {
				if v, err := decimal.NewFromString(post.Amount.Amount); err == nil {
					postRaw = v
				}
				break
			}
		}
		if postRaw.LessThan(preRaw) {
			if payer, err := solana.PublicKeyFromBase58(pre.Owner); err == nil {
				return payer
			}
		}
	}

	if payer, err := nativePayer(tx); err == nil {
		return payer
	}
	return solana.PublicKey{}
}
