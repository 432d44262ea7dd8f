// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

//go:build integration

package access_test

import (
	"context"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/internal/access/accesstest"
	"github.com/tiergate/tiergate/internal/engine"
)

var _ = Describe("Engine over PostgreSQL", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetSchema()
	})

	It("restores users, overrides, whitelist and modes after a restart", func() {
		svc, _ := startEngine()

		_, err := svc.SetBalance(ctx, accesstest.Alice, 300_000, access.SystemActor)
		Expect(err).NotTo(HaveOccurred())
		_, err = svc.GrantPermission(ctx, accesstest.Alice, access.PermVeto, accesstest.SuperAdmin)
		Expect(err).NotTo(HaveOccurred())
		_, err = svc.AddToWhitelist(ctx, accesstest.Bob, accesstest.SuperAdmin)
		Expect(err).NotTo(HaveOccurred())
		Expect(svc.SetAccessMode(ctx, engine.AccessModeLockdown, accesstest.SuperAdmin)).To(Succeed())

		restarted, _ := startEngine()

		alice, err := restarted.User(accesstest.Alice)
		Expect(err).NotTo(HaveOccurred())
		Expect(alice.Known).To(BeTrue())
		Expect(alice.Tier).To(Equal(access.TierShadowElite))
		Expect(alice.CustomPermissions).To(ContainElement(access.PermVeto))

		Expect(restarted.IsWhitelisted(accesstest.Bob)).To(BeTrue())
		Expect(restarted.IsAtLeast(accesstest.Bob, access.RoleAdmin)).To(BeTrue())
		Expect(restarted.Modes().AccessMode).To(Equal(engine.AccessModeLockdown))
	})

	It("applies concurrent grants on one address without losing updates", func() {
		svc, pg := startEngine()
		perms := []access.Permission{
			access.PermVote, access.PermVeto, access.PermCreateProposals,
			access.PermViewTreasury, access.PermClaimDividends, access.PermShadowSwap,
		}

		var wg sync.WaitGroup
		for _, perm := range perms {
			wg.Add(1)
			go func(p access.Permission) {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := svc.GrantPermission(ctx, accesstest.Carol, p, accesstest.SuperAdmin)
				Expect(err).NotTo(HaveOccurred(), fmt.Sprintf("grant %s", p))
			}(perm)
		}
		wg.Wait()

		stored, err := pg.Users.GetUser(ctx, accesstest.Carol)
		Expect(err).NotTo(HaveOccurred())
		for _, p := range perms {
			Expect(stored.CustomPermissions.Has(p)).To(BeTrue(), string(p))
		}

		entries, err := pg.Audit.RecentAudit(ctx, accesstest.Carol, 100)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(len(perms)))
	})

	It("audits denied mutations", func() {
		svc, pg := startEngine()

		_, err := svc.AddRole(ctx, accesstest.Alice, access.RoleAdmin, accesstest.Bob)
		Expect(access.IsUnauthorized(err)).To(BeTrue())

		entries, err := pg.Audit.RecentAudit(ctx, accesstest.Alice, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Outcome).To(Equal(engine.OutcomeDenied))
	})
})
