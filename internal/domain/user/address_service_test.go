package user

import (
	"context"
	"testing"

	"github.com/quickcommerce/storefront/internal/pkg/apperror"
	"github.com/quickcommerce/storefront/internal/pkg/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() AddressInput {
	return AddressInput{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		AddressLine1: " 12 St James's Square ",
		City:         "London",
		PostalCode:   "SW1Y 4JH",
		Country:      "gb",
	}
}

func TestAddressServiceSnapshot(t *testing.T) {
	db := testdb.Open(t, &Address{})
	svc := NewAddressService()

	got, err := svc.Snapshot(context.Background(), db, 42, validInput())
	require.NoError(t, err)
	assert.NotZero(t, got.ID)
	assert.Equal(t, uint(42), got.UserID)
	assert.Equal(t, "12 St James's Square", got.AddressLine1)
	assert.Equal(t, "GB", got.Country)

	var stored Address
	require.NoError(t, db.First(&stored, got.ID).Error)
	assert.Equal(t, []string{"Ada Lovelace", "12 St James's Square", "London, SW1Y 4JH", "GB"}, stored.Lines())
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AddressInput)
		wantErr bool
	}{
		{name: "valid", mutate: func(*AddressInput) {}},
		{name: "missing first name", mutate: func(in *AddressInput) { in.FirstName = " " }, wantErr: true},
		{name: "missing street", mutate: func(in *AddressInput) { in.AddressLine1 = "" }, wantErr: true},
		{name: "missing postal code", mutate: func(in *AddressInput) { in.PostalCode = "" }, wantErr: true},
		{name: "three letter country", mutate: func(in *AddressInput) { in.Country = "GBR" }, wantErr: true},
		{name: "numeric country", mutate: func(in *AddressInput) { in.Country = "12" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			err := ValidateAddress(&in)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPaymentMethodServiceResolve(t *testing.T) {
	db := testdb.Open(t, &PaymentMethod{})
	svc := NewPaymentMethodService()
	ctx := context.Background()

	method, err := svc.Resolve(ctx, db, 7, " pm_card_visa ")
	require.NoError(t, err)
	assert.NotZero(t, method.ID)
	assert.Equal(t, PaymentTypeCreditCard, method.Type)
	assert.Equal(t, "pm_card_visa", method.ProviderReference)

	_, err = svc.Resolve(ctx, db, 7, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}
