package taskname

const (
	// Mail delivery
	EmailSend = "email:send"

	// Payment e-mails
	PaymentConfirmation = "payment:email:confirmation"
	PaymentFailure      = "payment:email:failure"

	// Affiliate program
	AffiliateReferralNotify = "affiliate:referral:notify"

	// Notifications
	NotificationBroadcast = "notification:broadcast"

	// Tarefas
	TarefaDueReminder = "tarefa:due:reminder"
)
