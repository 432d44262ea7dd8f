// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/internal/access/accesstest"
	"github.com/tiergate/tiergate/internal/directory"
	"github.com/tiergate/tiergate/internal/engine"
	"github.com/tiergate/tiergate/internal/store"
	"github.com/tiergate/tiergate/internal/whitelist"
)

var _ = Describe("Migrator", func() {
	It("reports every migration applied after Up", func() {
		m, err := store.NewMigrator(databaseURL)
		Expect(err).NotTo(HaveOccurred())
		defer func() { Expect(m.Close()).To(Succeed()) }()

		Expect(m.Up()).To(Succeed())
		status, err := m.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Dirty).To(BeFalse())
		Expect(status.Pending).To(BeEmpty())
		Expect(status.Applied).To(Equal([]uint{1, 2, 3}))
	})

	It("steps down and back up", func() {
		m, err := store.NewMigrator(databaseURL)
		Expect(err).NotTo(HaveOccurred())
		defer func() { Expect(m.Close()).To(Succeed()) }()

		Expect(m.Up()).To(Succeed())
		Expect(m.Steps(-1)).To(Succeed())
		version, _, err := m.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
		Expect(m.Steps(1)).To(Succeed())
	})
})

var _ = Describe("UserRepository", func() {
	var pg *store.Postgres
	ctx := context.Background()
	joined := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		pg = freshDatabase()
	})

	It("returns ErrNotFound for unknown addresses", func() {
		_, err := pg.Users.GetUser(ctx, accesstest.Alice)
		Expect(access.IsNotFound(err)).To(BeTrue())
	})

	It("round-trips a record with overrides", func() {
		u := directory.NewUser(accesstest.Alice, joined)
		u.Balance = 120_000
		u.GrantedRoles.Add(access.RoleAdmin)
		u.RevokedRoles.Add(access.RoleEntryLevel)
		u.CustomPermissions.Add(access.PermVeto)
		u.Recompute(accesstest.StaticWhitelist{})
		Expect(pg.Users.PutUser(ctx, u)).To(Succeed())

		got, err := pg.Users.GetUser(ctx, accesstest.Alice)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Balance).To(Equal(120_000.0))
		Expect(got.Tier).To(Equal(u.Tier))
		Expect(got.Roles.Sorted()).To(Equal(u.Roles.Sorted()))
		Expect(got.GrantedRoles.Has(access.RoleAdmin)).To(BeTrue())
		Expect(got.RevokedRoles.Has(access.RoleEntryLevel)).To(BeTrue())
		Expect(got.CustomPermissions.Has(access.PermVeto)).To(BeTrue())
		Expect(got.JoinedAt).To(BeTemporally("==", joined))
	})

	It("keeps joined_at on update", func() {
		u := directory.NewUser(accesstest.Alice, joined)
		Expect(pg.Users.PutUser(ctx, u)).To(Succeed())

		later := u.Clone()
		later.JoinedAt = joined.Add(24 * time.Hour)
		later.LastActive = joined.Add(48 * time.Hour)
		Expect(pg.Users.PutUser(ctx, later)).To(Succeed())

		got, err := pg.Users.GetUser(ctx, accesstest.Alice)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.JoinedAt).To(BeTemporally("==", joined))
		Expect(got.LastActive).To(BeTemporally("==", later.LastActive))
	})

	It("rejects negative balances at the database", func() {
		u := directory.NewUser(accesstest.Alice, joined)
		u.Balance = -1
		Expect(pg.Users.PutUser(ctx, u)).NotTo(Succeed())
	})
})

var _ = Describe("WhitelistRepository", func() {
	It("backs a registry across restarts", func() {
		ctx := context.Background()
		pg := freshDatabase()

		reg, err := whitelist.NewRegistry(pg.Lists, access.PermanentAdmins)
		Expect(err).NotTo(HaveOccurred())
		added, err := reg.Add(ctx, accesstest.Alice, accesstest.SuperAdmin)
		Expect(err).NotTo(HaveOccurred())
		Expect(added).To(BeTrue())

		reloaded, err := whitelist.NewRegistry(pg.Lists, access.PermanentAdmins)
		Expect(err).NotTo(HaveOccurred())
		Expect(reloaded.Load(ctx)).To(Succeed())
		Expect(reloaded.IsWhitelisted(accesstest.Alice)).To(BeTrue())

		removed, err := reloaded.Remove(ctx, accesstest.Alice, accesstest.SuperAdmin)
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeTrue())
		entries, err := pg.Lists.ListWhitelist(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})
})

var _ = Describe("ModeRepository and AuditRepository", func() {
	var pg *store.Postgres
	ctx := context.Background()

	BeforeEach(func() {
		pg = freshDatabase()
	})

	It("loads defaults before the first save", func() {
		modes, err := pg.Modes.LoadModes(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(modes).To(Equal(engine.DefaultModes()))
	})

	It("persists mode changes", func() {
		want := engine.Modes{AccessMode: engine.AccessModeLockdown, KillSwitchActive: true}
		Expect(pg.Modes.SaveModes(ctx, want)).To(Succeed())

		got, err := pg.Modes.LoadModes(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(want))
	})

	It("returns audit entries newest first", func() {
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		for i, op := range []string{"set_balance", "add_role"} {
			stamp := at.Add(time.Duration(i) * time.Second)
			Expect(pg.Audit.WriteAudit(ctx, engine.AuditEntry{
				ID:          ulid.MustNew(ulid.Timestamp(stamp), ulid.DefaultEntropy()),
				Operation:   op,
				Address:     accesstest.Alice,
				RequestedBy: accesstest.SuperAdmin,
				Outcome:     engine.OutcomeApplied,
				At:          stamp,
			})).To(Succeed())
		}

		entries, err := pg.Audit.RecentAudit(ctx, accesstest.Alice, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Operation).To(Equal("add_role"))

		others, err := pg.Audit.RecentAudit(ctx, accesstest.Bob, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(others).To(BeEmpty())
	})
})
