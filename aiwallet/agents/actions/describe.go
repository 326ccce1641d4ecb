package actions

import (
	"aiwallet/aiwallet/agents/intent"
	"aiwallet/aiwallet/services/wallet"
	"aiwallet/aiwallet/services/walletlist"
	"context"
	"errors"
	"strings"
)

// Describe turns an error from a wallet call into a message for the chat.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWalletLocked):
		return "ウォレットはロックされています。ロックを解除してから再度お試しください。"
	case errors.Is(err, ErrDailyLimitExceeded):
		return "1日の送金上限を超えています。金額を減らすか、明日もう一度お試しください。"
	case errors.Is(err, intent.ErrInvalidAddress), errors.Is(err, wallet.ErrInvalidAddress):
		return "送金先アドレスの形式が正しくありません。0xで始まる40桁の16進数を入力してください。"
	case errors.Is(err, intent.ErrInvalidAmount), errors.Is(err, wallet.ErrInvalidAmount):
		return "送金額は正の数値で入力してください。"
	case errors.Is(err, wallet.ErrWrongNetwork):
		return "Sepoliaネットワークに接続できません。"
	case errors.Is(err, wallet.ErrNoBytecode):
		return "ウォレットコントラクトが利用できません。管理者に連絡してください。"
	case errors.Is(err, wallet.ErrNotOwner):
		return "この秘密鍵はウォレットコントラクトの所有者ではありません。"
	case errors.Is(err, wallet.ErrInvalidKey):
		return "秘密鍵またはニーモニックが正しくありません。"
	case errors.Is(err, wallet.ErrReverted):
		return "トランザクションが失敗しました。コントラクトにより取り消されました。"
	case errors.Is(err, walletlist.ErrNoActiveWallet):
		return "アクティブなウォレットがありません。まずウォレットを作成してください。"
	case errors.Is(err, walletlist.ErrWalletNotFound):
		return "指定されたウォレットが見つかりません。"
	case errors.Is(err, context.DeadlineExceeded):
		return "ネットワークの応答がタイムアウトしました。しばらくしてから再度お試しください。"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return "残高が不足しています(ガス代を含む)。"
	case strings.Contains(msg, "execution reverted"):
		return "トランザクションが失敗しました。コントラクトにより取り消されました。"
	case strings.Contains(msg, "nonce too low"), strings.Contains(msg, "replacement transaction underpriced"):
		return "前のトランザクションが処理中です。完了を待ってから再度お試しください。"
	}
	return "ネットワークエラーが発生しました: " + err.Error()
}
