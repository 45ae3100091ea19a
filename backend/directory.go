// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// User is a club member's directory entry. Identity comes from the auth
// layer (the email); role, team binding and approval state live here.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TeamID   string `json:"teamId,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	MemberID string `json:"memberId,omitempty"`

	// LinkedPlayerIDs associates a parent's account with the roster
	// entries of their children.
	LinkedPlayerIDs []string `json:"linkedPlayerIds,omitempty"`

	// Status is "active" or "pending". Pending members joined with a
	// team code and wait for staff approval.
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}

func (u *User) clone() *User {
	cp := *u
	if u.LinkedPlayerIDs != nil {
		cp.LinkedPlayerIDs = append([]string(nil), u.LinkedPlayerIDs...)
	}
	return &cp
}

func (u *User) normalize() {
	u.Email = normalizeEmail(u.Email)
	if u.Status == "" {
		u.Status = MemberPending
	}
}

// newMemberID builds a human-readable member reference from the first
// name plus six random digits, e.g. "MARI482913".
func newMemberID(name string) string {
	first := strings.Fields(name)
	prefix := "USER"
	if len(first) > 0 && first[0] != "" {
		prefix = strings.ToUpper(first[0])
		if len(prefix) > 4 {
			prefix = prefix[:4]
		}
	}
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return prefix + uuid.NewString()[:6]
	}
	return fmt.Sprintf("%s%06d", prefix, n.Int64()+100000)
}

// UserDirectory manages club membership in memory, keyed by normalized
// email address.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewUserDirectory creates a new UserDirectory.
func NewUserDirectory() *UserDirectory {
	return &UserDirectory{users: make(map[string]*User)}
}

// Lookup returns the directory entry for an email.
func (d *UserDirectory) Lookup(email string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[normalizeEmail(email)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return u.clone(), nil
}

// Register adds a new member. The entry starts pending unless the caller
// set it active (seeding, staff invites).
func (d *UserDirectory) Register(u *User) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u.normalize()
	if u.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if _, exists := d.users[u.Email]; exists {
		return nil, os.ErrExist
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.MemberID == "" {
		u.MemberID = newMemberID(u.Name)
	}
	now := time.Now().UnixMilli()
	u.CreatedAt = now
	u.UpdatedAt = now

	d.users[u.Email] = u.clone()
	return u, nil
}

// Update replaces the mutable fields of an existing entry.
func (d *UserDirectory) Update(u *User) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u.normalize()
	existing, ok := d.users[u.Email]
	if !ok {
		return nil, os.ErrNotExist
	}
	if u.Name != "" {
		existing.Name = u.Name
	}
	if u.Role != "" {
		existing.Role = u.Role
	}
	if u.TeamID != "" {
		existing.TeamID = u.TeamID
	}
	if u.PlayerID != "" {
		existing.PlayerID = u.PlayerID
	}
	if u.ImageURL != "" {
		existing.ImageURL = u.ImageURL
	}
	if u.LinkedPlayerIDs != nil {
		existing.LinkedPlayerIDs = append([]string(nil), u.LinkedPlayerIDs...)
	}
	if u.Status != "" {
		existing.Status = u.Status
	}
	existing.UpdatedAt = time.Now().UnixMilli()
	return existing.clone(), nil
}

// Approve flips a pending member to active.
func (d *UserDirectory) Approve(email string) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[normalizeEmail(email)]
	if !ok {
		return nil, os.ErrNotExist
	}
	u.Status = MemberActive
	u.UpdatedAt = time.Now().UnixMilli()
	return u.clone(), nil
}

// Remove deletes a member from the directory.
func (d *UserDirectory) Remove(email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	email = normalizeEmail(email)
	if _, ok := d.users[email]; !ok {
		return os.ErrNotExist
	}
	delete(d.users, email)
	return nil
}

// ListTeamMembers returns the directory entries bound to a team, sorted
// by name.
func (d *UserDirectory) ListTeamMembers(teamId string) []*User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*User, 0)
	for _, u := range d.users {
		if u.TeamID == teamId {
			out = append(out, u.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
