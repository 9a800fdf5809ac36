package customer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeRepo struct {
	customers map[string]*Customer
}

func newFakeRepo() *fakeRepo { return &fakeRepo{customers: make(map[string]*Customer)} }

func (f *fakeRepo) Create(ctx context.Context, c *Customer) error {
	f.customers[c.ID.String()] = c
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (*Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer not found")
	}
	return c, nil
}

func (f *fakeRepo) List(ctx context.Context, registeredOnly bool) ([]*Customer, error) {
	var out []*Customer
	for _, c := range f.customers {
		if registeredOnly && !c.IsRegistered {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRepo) Update(ctx context.Context, c *Customer) error {
	f.customers[c.ID.String()] = c
	return nil
}

type fakeAccountRepo struct {
	accounts map[string]*Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*Account)}
}

func (f *fakeAccountRepo) Create(ctx context.Context, a *Account) error {
	f.accounts[a.Email] = a
	return nil
}

func (f *fakeAccountRepo) GetByEmail(ctx context.Context, email string) (*Account, error) {
	a, ok := f.accounts[email]
	if !ok {
		return nil, fmt.Errorf("account not found")
	}
	return a, nil
}

func (f *fakeAccountRepo) GetByCustomerID(ctx context.Context, customerID string) (*Account, error) {
	for _, a := range f.accounts {
		if a.CustomerID.String() == customerID {
			return a, nil
		}
	}
	return nil, fmt.Errorf("account not found")
}

func TestRegisterHashesPassword(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := NewService(newFakeRepo(), accounts)
	ctx := context.Background()

	c, err := svc.Register(ctx, RegisterRequest{
		Email:     "amy@example.com",
		Password:  "correct horse",
		FirstName: "Amy",
		LastName:  "Phiri",
	})
	require.NoError(t, err)
	require.True(t, c.IsRegistered)

	a, err := accounts.GetByEmail(ctx, "amy@example.com")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse", a.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("correct horse")))
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newFakeRepo(), newFakeAccountRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Email: "not-an-email", Password: "long enough"})
	require.Error(t, err)

	_, err = svc.Register(ctx, RegisterRequest{Email: "a@b.com", Password: "short"})
	require.Error(t, err)
}

func TestAnonymousCustomer(t *testing.T) {
	svc := NewService(newFakeRepo(), newFakeAccountRepo())

	c, err := svc.CreateAnonymous(context.Background())
	require.NoError(t, err)
	require.False(t, c.IsRegistered)
	require.True(t, c.IsActive)
	require.Empty(t, c.FirstName)
}
