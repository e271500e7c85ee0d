// Package roles описывает закрытый набор ролей платформы и матрицу
// возможностей (роль -> разрешенные действия). Все проверки доступа
// проходят через Can, чтобы не дублировать сравнение строк по обработчикам.
package roles

import "strings"

// Role — роль пользователя платформы.
type Role string

const (
	Founder    Role = "founder"
	Talent     Role = "talent"
	Hirer      Role = "hirer"
	Investor   Role = "investor"
	Team       Role = "team"
	Admin      Role = "admin"
	SuperAdmin Role = "super_admin"
	Finance    Role = "finance"
)

// Action — действие, доступ к которому определяется ролью.
type Action string

const (
	PaySetupFee          Action = "pay_setup_fee"
	PayMarketplaceFee    Action = "pay_marketplace_fee"
	SubmitManualPayment  Action = "submit_manual_payment"
	ReviewManualPayments Action = "review_manual_payments"
	ManageEarlyAccess    Action = "manage_early_access"
	ViewUnlocks          Action = "view_unlocks"
)

var all = []Role{Founder, Talent, Hirer, Investor, Team, Admin, SuperAdmin, Finance}

// selfService — действия, доступные любой аутентифицированной роли.
var selfService = []Action{PaySetupFee, SubmitManualPayment, ViewUnlocks}

var matrix = map[Role][]Action{
	Founder:    selfService,
	Investor:   selfService,
	Talent:     append([]Action{PayMarketplaceFee}, selfService...),
	Hirer:      append([]Action{PayMarketplaceFee}, selfService...),
	Team:       append([]Action{ManageEarlyAccess}, selfService...),
	Admin:      append([]Action{ReviewManualPayments, ManageEarlyAccess}, selfService...),
	SuperAdmin: append([]Action{ReviewManualPayments, ManageEarlyAccess}, selfService...),
	Finance:    append([]Action{ReviewManualPayments}, selfService...),
}

// Parse приводит строку к Role. Второе значение false, если роль неизвестна.
func Parse(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range all {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// Can сообщает, разрешено ли роли действие.
func Can(r Role, a Action) bool {
	for _, allowed := range matrix[r] {
		if allowed == a {
			return true
		}
	}
	return false
}

// IsAdminOrTeam — роли с неявным доступом к рабочему пространству без оплаты.
func IsAdminOrTeam(r Role) bool {
	switch r {
	case Team, Admin, SuperAdmin, Finance:
		return true
	}
	return false
}

// Selfregisterable — роли, которые пользователь может выбрать при регистрации.
func Selfregisterable(r Role) bool {
	switch r {
	case Founder, Talent, Hirer, Investor:
		return true
	}
	return false
}

// HasMarketplaceProfile — роли, для которых доступ к маркетплейсу платный.
func HasMarketplaceProfile(r Role) bool {
	return r == Talent || r == Hirer
}
