package glpi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is the timestamp format GLPI uses in reservation records.
const TimeLayout = "2006-01-02 15:04:05"

// FormatTime renders t the way GLPI stores timestamps.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// ParseTime reads a GLPI timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("glpi timestamp %q: %w", s, err)
	}
	return t, nil
}

// Computer mirrors the fields of a GLPI Computer record that the toolkit
// reads and writes. GLPI returns many more; unknown fields are ignored.
type Computer struct {
	ID              int    `json:"id,omitempty"`
	Name            string `json:"name"`
	Serial          string `json:"serial,omitempty"`
	UUID            string `json:"uuid,omitempty"`
	ManufacturersID int    `json:"manufacturers_id,omitempty"`
	ModelsID        int    `json:"computermodels_id,omitempty"`
	TypesID         int    `json:"computertypes_id,omitempty"`
	StatesID        int    `json:"states_id,omitempty"`
	Comment         string `json:"comment,omitempty"`
}

// Reservation is one booking of a reservation item.
type Reservation struct {
	ID                 int    `json:"id,omitempty"`
	ReservationItemsID int    `json:"reservationitems_id"`
	UsersID            int    `json:"users_id"`
	Begin              string `json:"begin"`
	End                string `json:"end"`
	Comment            string `json:"comment,omitempty"`
}

// ReservationItem links an asset to the reservation system. IsActive zero
// makes the asset unreservable.
type ReservationItem struct {
	ID       int    `json:"id,omitempty"`
	ItemType string `json:"itemtype"`
	ItemsID  int    `json:"items_id"`
	IsActive int    `json:"is_active"`
	Comment  string `json:"comment,omitempty"`
}

// User is a GLPI account.
type User struct {
	ID       int    `json:"id,omitempty"`
	Name     string `json:"name"`
	RealName string `json:"realname,omitempty"`
}

// Group is a GLPI group.
type Group struct {
	ID      int    `json:"id,omitempty"`
	Name    string `json:"name"`
	Comment string `json:"comment,omitempty"`
}

// GroupMembership is one user's membership in one group.
type GroupMembership struct {
	ID       int `json:"id,omitempty"`
	GroupsID int `json:"groups_id"`
	UsersID  int `json:"users_id"`
}

// Tag is a label from the GLPI tag plugin.
type Tag struct {
	ID      int    `json:"id,omitempty"`
	Name    string `json:"name"`
	Comment string `json:"comment,omitempty"`
}

// TagItem attaches a Tag to an asset.
type TagItem struct {
	ID            int    `json:"id,omitempty"`
	PluginTagTags int    `json:"plugin_tag_tags_id"`
	ItemType      string `json:"itemtype"`
	ItemsID       int    `json:"items_id"`
}

func listAs[T any](ctx context.Context, c *Client, itemType string) ([]T, error) {
	raw, err := c.ListAll(ctx, itemType)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var decoded T
		if err := json.Unmarshal(item, &decoded); err != nil {
			return nil, fmt.Errorf("decode %s item: %w", itemType, err)
		}
		out = append(out, decoded)
	}
	return out, nil
}

// Computers lists every computer.
func (c *Client) Computers(ctx context.Context) ([]Computer, error) {
	return listAs[Computer](ctx, c, "Computer")
}

// Reservations lists every reservation, past and future.
func (c *Client) Reservations(ctx context.Context) ([]Reservation, error) {
	return listAs[Reservation](ctx, c, "Reservation")
}

// ReservationItems lists the assets wired into the reservation system.
func (c *Client) ReservationItems(ctx context.Context) ([]ReservationItem, error) {
	return listAs[ReservationItem](ctx, c, "ReservationItem")
}

// Users lists every account.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	return listAs[User](ctx, c, "User")
}

// Groups lists every group.
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	return listAs[Group](ctx, c, "Group")
}

// GroupMemberships lists every group/user link.
func (c *Client) GroupMemberships(ctx context.Context) ([]GroupMembership, error) {
	return listAs[GroupMembership](ctx, c, "Group_User")
}

// Tags lists every label from the tag plugin.
func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	return listAs[Tag](ctx, c, "PluginTagTag")
}

// TagItems lists every tag attachment.
func (c *Client) TagItems(ctx context.Context) ([]TagItem, error) {
	return listAs[TagItem](ctx, c, "PluginTagItem")
}
