package tests

import (
    "fmt"

    "github.com/walletera/sourced-repository/pkg/sourced"

    "go.mongodb.org/mongo-driver/v2/bson"
)

const (
    accountOpenedEvent  = "account.opened"
    fundsDepositedEvent = "funds.deposited"
    balanceChanged      = "balance.changed"
)

type accountOpened struct {
    Owner string `bson:"owner"`
}

type fundsDeposited struct {
    Amount int64 `bson:"amount"`
}

type accountState struct {
    Owner   string `bson:"owner"`
    Balance int64  `bson:"balance"`
}

type Account struct {
    sourced.Entity
    Owner   string
    Balance int64
}

func NewAccount() *Account { return &Account{} }

func (a *Account) Root() *sourced.Entity { return &a.Entity }

func (a *Account) Open(id string, owner string) error {
    a.SetID(id)
    a.Owner = owner
    return a.Digest(accountOpenedEvent, accountOpened{Owner: owner})
}

func (a *Account) Deposit(amount int64) error {
    a.Balance += amount
    err := a.Digest(fundsDepositedEvent, fundsDeposited{Amount: amount})
    if err != nil {
        return err
    }
    a.Enqueue(balanceChanged, a.Balance)
    return nil
}

func (a *Account) Apply(event sourced.Event) error {
    switch event.Type {
    case accountOpenedEvent:
        var opened accountOpened
        if err := event.Decode(&opened); err != nil {
            return err
        }
        a.Owner = opened.Owner
    case fundsDepositedEvent:
        var deposited fundsDeposited
        if err := event.Decode(&deposited); err != nil {
            return err
        }
        a.Balance += deposited.Amount
    default:
        return fmt.Errorf("unexpected account event %s", event.Type)
    }
    return nil
}

func (a *Account) Snapshot() (any, error) {
    return accountState{Owner: a.Owner, Balance: a.Balance}, nil
}

func (a *Account) Restore(state bson.Raw) error {
    var s accountState
    if err := bson.Unmarshal(state, &s); err != nil {
        return err
    }
    a.Owner = s.Owner
    a.Balance = s.Balance
    return nil
}

func (a *Account) IndexValue(field string) (any, bool) {
    if field == "owner" {
        return a.Owner, true
    }
    return nil, false
}
