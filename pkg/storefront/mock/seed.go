package mock

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"gopkg.in/yaml.v3"

	"github.com/vitrine/storefront_sdk_go/pkg/session"
	"github.com/vitrine/storefront_sdk_go/pkg/storefront"
)

// SeedUser is an account in a seed file.
type SeedUser struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Status   string `yaml:"status"`
}

// SeedProduct is a catalogue entry in a seed file. Seller is the email of a
// seeded seller.
type SeedProduct struct {
	Seller          string   `yaml:"seller"`
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Price           string   `yaml:"price"`
	StockQuantity   int      `yaml:"stockQuantity"`
	IsStockInfinite bool     `yaml:"isStockInfinite"`
	Status          string   `yaml:"status"`
	Images          []string `yaml:"images"`
}

// SeedData is the content of a seed file.
type SeedData struct {
	Users    []SeedUser    `yaml:"users"`
	Products []SeedProduct `yaml:"products"`
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedData{}, fmt.Errorf("mock storefront: read seed: %w", err)
	}
	var data SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return SeedData{}, fmt.Errorf("mock storefront: parse seed %s: %w", path, err)
	}
	return data, nil
}

// Seed loads users then products. Products name their seller by email.
func (m *Mock) Seed(data SeedData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, su := range data.Users {
		role := su.Role
		if role == "" {
			role = session.RoleCustomer
		}
		u, err := m.addUserLocked(su.Name, su.Email, su.Password, role)
		if err != nil {
			return fmt.Errorf("mock storefront: seed user %q: %w", su.Email, err)
		}
		if su.Status != "" {
			m.users[u.ID].user.Status = su.Status
		}
	}

	for i, sp := range data.Products {
		seller := m.findByEmailLocked(strings.ToLower(strings.TrimSpace(sp.Seller)))
		if seller == nil {
			return fmt.Errorf("mock storefront: seed product %d: unknown seller %q", i, sp.Seller)
		}
		in := storefront.NewProduct{
			Name:          sp.Name,
			Description:   sp.Description,
			StockQuantity: sp.StockQuantity,
			Config:        storefront.ProductConfig{IsStockInfinite: sp.IsStockInfinite},
			Status:        storefront.ProductStatus(sp.Status),
		}
		if sp.Price != "" {
			price, err := storefront.NewMoney(sp.Price)
			if err != nil {
				return fmt.Errorf("mock storefront: seed product %q: price: %w", sp.Name, err)
			}
			in.Price = price
		}
		for _, url := range sp.Images {
			in.AddImage(url)
		}
		m.createProductLocked(seller.user.ID, in)
	}
	return nil
}

// Accounts created by Fake. Both use FakePassword.
const (
	FakeSellerEmail   = "vendedor@vitrine.dev"
	FakeCustomerEmail = "cliente@vitrine.dev"
	FakePassword      = "Senha#123"
)

// Fake adds a seller, a customer and n generated products. The same seed
// yields the same catalogue; seed 0 is random.
func (m *Mock) Fake(n int, seed uint64) error {
	if n < 0 {
		return errors.New("mock storefront: product count must not be negative")
	}
	f := gofakeit.New(seed)

	m.mu.Lock()
	defer m.mu.Unlock()

	seller := m.findByEmailLocked(FakeSellerEmail)
	if seller == nil {
		u, err := m.addUserLocked(f.Company(), FakeSellerEmail, FakePassword, session.RoleSeller)
		if err != nil {
			return err
		}
		seller = m.users[u.ID]
	}
	if m.findByEmailLocked(FakeCustomerEmail) == nil {
		if _, err := m.addUserLocked(f.Name(), FakeCustomerEmail, FakePassword, session.RoleCustomer); err != nil {
			return err
		}
	}

	for i := 0; i < n; i++ {
		in := storefront.NewProduct{
			Name:          f.ProductName(),
			Description:   f.ProductDescription(),
			Price:         storefront.MustMoney(fmt.Sprintf("%.2f", f.Price(5, 2500))),
			StockQuantity: f.IntRange(0, 50),
			Config:        storefront.ProductConfig{IsStockInfinite: f.IntRange(0, 4) == 0},
			Status:        storefront.ProductActive,
		}
		for j := f.IntRange(1, 3); j > 0; j-- {
			in.AddImage(fmt.Sprintf("https://picsum.photos/seed/%s/600/600", f.LetterN(10)))
		}
		m.createProductLocked(seller.user.ID, in)
	}
	return nil
}
