package memoryRepo

import (
	"context"
	"sync"

	"rentwheels/database/repository"
	"rentwheels/models"
)

// Directory holds vehicles and contacts registered by tests or seed data.
type Directory struct {
	mu       sync.RWMutex
	vehicles map[string]models.Vehicle
	contacts map[string]models.Contact
}

func NewDirectory() *Directory {
	return &Directory{
		vehicles: make(map[string]models.Vehicle),
		contacts: make(map[string]models.Contact),
	}
}

func (d *Directory) AddVehicle(v models.Vehicle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vehicles[v.ID] = v
}

func (d *Directory) AddContact(c models.Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contacts[c.UserID] = c
}

func (d *Directory) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (d *Directory) GetContact(ctx context.Context, userID string) (*models.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.contacts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}
