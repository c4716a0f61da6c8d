package workflow_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/handlers"
	"github.com/ltdedn/editions_backend/models"
	"github.com/ltdedn/editions_backend/workflow"
)

// Exercises the full edition lifecycle against real MySQL + Redis:
// concurrent claims, the transfer handshake with its races, the expiry
// sweeper, redemption, and outbox delivery.
func TestEditionLifecycle(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "editions_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	// Cast: one artist owner, a sender, a recipient, and a crowd of claimers.
	artistOwner := mustCreateUser(t, ctx, "Artist Owner", "owner@test.local", string(models.UserRoleArtist))
	sender := mustCreateUser(t, ctx, "Sender", "sender@test.local", "")
	recipient := mustCreateUser(t, ctx, "Recipient", "recipient@test.local", "")
	var crowd []*models.User
	for i := 0; i < 8; i++ {
		crowd = append(crowd, mustCreateUser(t, ctx, fmt.Sprintf("Collector %d", i), fmt.Sprintf("collector%d@test.local", i), ""))
	}

	artist, err := models.CreateArtist(ctx, &models.NewArtist{
		Name:    "Test Artist",
		Slug:    "test-artist",
		OwnerId: &artistOwner.ID,
	})
	if err != nil {
		t.Fatalf("CreateArtist: %v", err)
	}

	product, err := models.CreateProduct(ctx, &models.NewProduct{
		ArtistId: artist.ID,
		Name:     "Midnight Print",
		Slug:     "midnight-print",
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	editions, err := models.CreateEditionsBulk(ctx, product.ID, &models.NewEditionBatch{Count: 6})
	if err != nil {
		t.Fatalf("CreateEditionsBulk: %v", err)
	}
	if len(editions) != 6 {
		t.Fatalf("expected 6 editions, got %d", len(editions))
	}

	t.Run("ConcurrentClaimsExactlyOneOwner", func(t *testing.T) {
		qr := editions[0].QrCode

		results := make([]*workflow.ClaimResult, len(crowd))
		var wg sync.WaitGroup
		for i, u := range crowd {
			wg.Add(1)
			go func(i int, userId int) {
				defer wg.Done()
				res, err := workflow.ClaimEdition(ctx, userId, qr)
				if err != nil {
					t.Errorf("ClaimEdition: %v", err)
					return
				}
				results[i] = res
			}(i, u.ID)
		}
		wg.Wait()

		owned := 0
		for _, res := range results {
			if res == nil {
				continue
			}
			switch res.Outcome {
			case workflow.OutcomeOwned:
				owned++
			case workflow.OutcomeAlreadyClaimed, workflow.OutcomeBusy:
			default:
				t.Errorf("unexpected outcome %s", res.Outcome)
			}
		}
		if owned != 1 {
			t.Fatalf("expected exactly one Owned, got %d", owned)
		}

		edition, err := models.GetEditionByQRCode(ctx, qr)
		if err != nil {
			t.Fatalf("GetEditionByQRCode: %v", err)
		}
		if edition.OwnerId == nil || edition.Status != models.EditionStatusSold {
			t.Fatalf("edition not sold after claim: owner=%v status=%s", edition.OwnerId, edition.Status)
		}
	})

	t.Run("ClaimIsIdempotentForOwnerAndFinalForOthers", func(t *testing.T) {
		qr := editions[1].QrCode
		res, err := workflow.ClaimEdition(ctx, sender.ID, qr)
		if err != nil || res.Outcome != workflow.OutcomeOwned {
			t.Fatalf("first claim: outcome=%v err=%v", res, err)
		}
		res, err = workflow.ClaimEdition(ctx, sender.ID, qr)
		if err != nil || res.Outcome != workflow.OutcomeAlreadyOwned {
			t.Fatalf("owner re-claim: outcome=%v err=%v", res, err)
		}
		res, err = workflow.ClaimEdition(ctx, recipient.ID, qr)
		if err != nil || res.Outcome != workflow.OutcomeAlreadyClaimed {
			t.Fatalf("other user claim: outcome=%v err=%v", res, err)
		}
	})

	t.Run("UnknownCodeIsNotFound", func(t *testing.T) {
		res, err := workflow.ClaimEdition(ctx, sender.ID, strings.Repeat("0", 64))
		if err != nil || res.Outcome != workflow.OutcomeNotFound {
			t.Fatalf("outcome=%v err=%v", res, err)
		}
	})

	t.Run("TransferHandshakeAccept", func(t *testing.T) {
		qr := editions[1].QrCode // owned by sender from previous subtest

		// An unknown recipient is reported as such, distinct from an
		// unknown edition.
		res0, err := workflow.CreateTransfer(ctx, sender.ID, qr, "nobody@test.local")
		if err != nil || res0.Outcome != workflow.OutcomeRecipientNotFound {
			t.Fatalf("unknown recipient: outcome=%v err=%v", res0, err)
		}

		// Self-transfer is a no-op.
		res, err := workflow.CreateTransfer(ctx, sender.ID, qr, "sender@test.local")
		if err != nil || res.Outcome != workflow.OutcomeSelfTransfer {
			t.Fatalf("self transfer: outcome=%v err=%v", res, err)
		}

		res, err = workflow.CreateTransfer(ctx, sender.ID, qr, "recipient@test.local")
		if err != nil || res.Outcome != workflow.OutcomeTransferCreated {
			t.Fatalf("create transfer: outcome=%v err=%v", res, err)
		}
		token := res.Transfer.Token
		if res.Edition.Status != models.EditionStatusPendingTransfer {
			t.Fatalf("edition not parked: status=%s", res.Edition.Status)
		}

		// A second offer on the same edition is refused.
		res2, err := workflow.CreateTransfer(ctx, sender.ID, qr, "recipient@test.local")
		if err != nil || res2.Outcome != workflow.OutcomeAlreadyPending {
			t.Fatalf("duplicate offer: outcome=%v err=%v", res2, err)
		}

		// Only the recipient may accept.
		res3, err := workflow.AcceptTransfer(ctx, sender.ID, token)
		if err != nil || res3.Outcome != workflow.OutcomeNotAllowed {
			t.Fatalf("sender accept: outcome=%v err=%v", res3, err)
		}

		res4, err := workflow.AcceptTransfer(ctx, recipient.ID, token)
		if err != nil || res4.Outcome != workflow.OutcomeTransferAccepted {
			t.Fatalf("accept: outcome=%v err=%v", res4, err)
		}
		if res4.Edition.OwnerId == nil || *res4.Edition.OwnerId != recipient.ID {
			t.Fatalf("ownership did not move: owner=%v", res4.Edition.OwnerId)
		}
		if res4.Edition.Status != models.EditionStatusSold {
			t.Fatalf("edition not back to sold: %s", res4.Edition.Status)
		}

		// Accepting again hits the resolved transfer.
		res5, err := workflow.AcceptTransfer(ctx, recipient.ID, token)
		if err != nil || res5.Outcome != workflow.OutcomeNotResolvable {
			t.Fatalf("double accept: outcome=%v err=%v", res5, err)
		}
	})

	t.Run("AcceptCancelRaceResolvesOnce", func(t *testing.T) {
		qr := editions[2].QrCode
		if res, err := workflow.ClaimEdition(ctx, sender.ID, qr); err != nil || res.Outcome != workflow.OutcomeOwned {
			t.Fatalf("claim: outcome=%v err=%v", res, err)
		}
		created, err := workflow.CreateTransfer(ctx, sender.ID, qr, "recipient@test.local")
		if err != nil || created.Outcome != workflow.OutcomeTransferCreated {
			t.Fatalf("create: outcome=%v err=%v", created, err)
		}
		token := created.Transfer.Token

		var acceptRes, cancelRes *workflow.TransferResult
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			acceptRes, _ = workflow.AcceptTransfer(ctx, recipient.ID, token)
		}()
		go func() {
			defer wg.Done()
			cancelRes, _ = workflow.CancelTransfer(ctx, sender.ID, token)
		}()
		wg.Wait()

		successes := 0
		if acceptRes != nil && acceptRes.Outcome == workflow.OutcomeTransferAccepted {
			successes++
		}
		if cancelRes != nil && cancelRes.Outcome == workflow.OutcomeTransferCancelled {
			successes++
		}
		if successes != 1 {
			t.Fatalf("expected exactly one winner, got accept=%+v cancel=%+v", acceptRes, cancelRes)
		}

		final, err := models.GetTransferByToken(ctx, token)
		if err != nil {
			t.Fatalf("GetTransferByToken: %v", err)
		}
		if final.IsPending() || final.CompletedAt == nil {
			t.Fatalf("transfer not terminally resolved: status=%s", final.Status)
		}
	})

	t.Run("RejectReturnsEditionToSender", func(t *testing.T) {
		qr := editions[3].QrCode
		if res, err := workflow.ClaimEdition(ctx, sender.ID, qr); err != nil || res.Outcome != workflow.OutcomeOwned {
			t.Fatalf("claim: outcome=%v err=%v", res, err)
		}
		created, err := workflow.CreateTransfer(ctx, sender.ID, qr, "recipient@test.local")
		if err != nil || created.Outcome != workflow.OutcomeTransferCreated {
			t.Fatalf("create: outcome=%v err=%v", created, err)
		}

		res, err := workflow.RejectTransfer(ctx, recipient.ID, created.Transfer.Token)
		if err != nil || res.Outcome != workflow.OutcomeTransferRejected {
			t.Fatalf("reject: outcome=%v err=%v", res, err)
		}
		if res.Edition.OwnerId == nil || *res.Edition.OwnerId != sender.ID {
			t.Fatalf("sender lost the edition on reject: owner=%v", res.Edition.OwnerId)
		}
		if res.Edition.Status != models.EditionStatusSold {
			t.Fatalf("edition not back to sold: %s", res.Edition.Status)
		}
	})

	t.Run("SweeperExpiresOnlyPastWindow", func(t *testing.T) {
		qr := editions[4].QrCode
		if res, err := workflow.ClaimEdition(ctx, sender.ID, qr); err != nil || res.Outcome != workflow.OutcomeOwned {
			t.Fatalf("claim: outcome=%v err=%v", res, err)
		}
		created, err := workflow.CreateTransfer(ctx, sender.ID, qr, "recipient@test.local")
		if err != nil || created.Outcome != workflow.OutcomeTransferCreated {
			t.Fatalf("create: outcome=%v err=%v", created, err)
		}
		token := created.Transfer.Token

		// Fresh offer: sweep must not touch it.
		expired, err := workflow.SweepExpiredTransfers(ctx, time.Now().UTC())
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if expired != 0 {
			t.Fatalf("sweep expired %d fresh transfer(s)", expired)
		}

		// Rewind the window and sweep again.
		if err := db.Exec("UPDATE product_edition_transfers SET expires_at = ? WHERE token = ?",
			time.Now().UTC().Add(-time.Hour), token).Error; err != nil {
			t.Fatalf("rewind expires_at: %v", err)
		}
		expired, err = workflow.SweepExpiredTransfers(ctx, time.Now().UTC())
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if expired != 1 {
			t.Fatalf("expected 1 expiry, got %d", expired)
		}

		final, err := models.GetTransferByToken(ctx, token)
		if err != nil {
			t.Fatalf("GetTransferByToken: %v", err)
		}
		if final.Status != models.TransferStatusExpired {
			t.Fatalf("status=%s", final.Status)
		}
		if final.Edition.OwnerId == nil || *final.Edition.OwnerId != sender.ID {
			t.Fatalf("sender lost the edition on expiry: owner=%v", final.Edition.OwnerId)
		}
		if final.Edition.Status != models.EditionStatusSold {
			t.Fatalf("edition status=%s", final.Edition.Status)
		}

		// Accept after expiry resolution is a no-op conflict.
		res, err := workflow.AcceptTransfer(ctx, recipient.ID, token)
		if err != nil || res.Outcome != workflow.OutcomeNotResolvable {
			t.Fatalf("accept after sweep: outcome=%v err=%v", res, err)
		}
	})

	t.Run("AcceptOnExpiredWindowExpiresInline", func(t *testing.T) {
		qr := editions[5].QrCode
		if res, err := workflow.ClaimEdition(ctx, sender.ID, qr); err != nil || res.Outcome != workflow.OutcomeOwned {
			t.Fatalf("claim: outcome=%v err=%v", res, err)
		}
		created, err := workflow.CreateTransfer(ctx, sender.ID, qr, "recipient@test.local")
		if err != nil || created.Outcome != workflow.OutcomeTransferCreated {
			t.Fatalf("create: outcome=%v err=%v", created, err)
		}
		token := created.Transfer.Token

		if err := db.Exec("UPDATE product_edition_transfers SET expires_at = ? WHERE token = ?",
			time.Now().UTC().Add(-time.Minute), token).Error; err != nil {
			t.Fatalf("rewind expires_at: %v", err)
		}

		res, err := workflow.AcceptTransfer(ctx, recipient.ID, token)
		if err != nil || res.Outcome != workflow.OutcomeTransferExpired {
			t.Fatalf("late accept: outcome=%v err=%v", res, err)
		}
		if res.Edition.OwnerId == nil || *res.Edition.OwnerId != sender.ID {
			t.Fatalf("sender lost the edition: owner=%v", res.Edition.OwnerId)
		}
	})

	t.Run("RedeemMintsOnceAndIsIdempotent", func(t *testing.T) {
		qr := editions[1].QrCode // owned by recipient after the accepted transfer

		res, err := workflow.RedeemEdition(ctx, sender.ID, qr)
		if err != nil || res.Outcome != workflow.OutcomeNotAllowed {
			t.Fatalf("non-owner redeem: outcome=%v err=%v", res, err)
		}

		res, err = workflow.RedeemEdition(ctx, recipient.ID, qr)
		if err != nil || res.Outcome != workflow.OutcomeRedeemed {
			t.Fatalf("redeem: outcome=%v err=%v", res, err)
		}
		if res.Token == nil || res.Wallet == nil {
			t.Fatalf("redeem returned token=%v wallet=%v", res.Token, res.Wallet)
		}
		if res.Wallet.EncryptedKey == "" {
			t.Fatal("wallet created without a sealed key blob")
		}
		if res.Token.LastTxHash != res.Token.MintTxHash {
			t.Fatalf("fresh mint: last_tx_hash=%s mint_tx_hash=%s", res.Token.LastTxHash, res.Token.MintTxHash)
		}
		firstTokenId := res.Token.TokenId

		res, err = workflow.RedeemEdition(ctx, recipient.ID, qr)
		if err != nil || res.Outcome != workflow.OutcomeRedeemed {
			t.Fatalf("re-redeem: outcome=%v err=%v", res, err)
		}
		if res.Token == nil || res.Token.TokenId != firstTokenId {
			t.Fatalf("re-redeem minted a second token")
		}

		events, err := models.ListCertificateEventsForEdition(ctx, res.Edition.ID)
		if err != nil {
			t.Fatalf("ListCertificateEventsForEdition: %v", err)
		}
		if len(events) != 1 || events[0].Type != models.CertificateEventMinted {
			t.Fatalf("expected one minted event, got %+v", events)
		}
	})

	t.Run("TransferAfterRedeemMovesCertificate", func(t *testing.T) {
		qr := editions[1].QrCode // redeemed by recipient in the previous subtest

		created, err := workflow.CreateTransfer(ctx, recipient.ID, qr, "sender@test.local")
		if err != nil || created.Outcome != workflow.OutcomeTransferCreated {
			t.Fatalf("create on redeemed edition: outcome=%v err=%v", created, err)
		}

		res, err := workflow.AcceptTransfer(ctx, sender.ID, created.Transfer.Token)
		if err != nil || res.Outcome != workflow.OutcomeTransferAccepted {
			t.Fatalf("accept: outcome=%v err=%v", res, err)
		}
		if res.Edition.OwnerId == nil || *res.Edition.OwnerId != sender.ID {
			t.Fatalf("ownership did not move: owner=%v", res.Edition.OwnerId)
		}
		if res.Edition.Status != models.EditionStatusRedeemed {
			t.Fatalf("edition lost its redeemed status: %s", res.Edition.Status)
		}

		token, err := models.GetChainTokenForEdition(ctx, res.Edition.ID)
		if err != nil || token == nil {
			t.Fatalf("GetChainTokenForEdition: token=%v err=%v", token, err)
		}
		if token.Wallet == nil || token.Wallet.UserId != sender.ID {
			t.Fatalf("certificate still in the old wallet: %+v", token.Wallet)
		}
		if token.LastTxHash == token.MintTxHash {
			t.Fatal("last_tx_hash not updated by the certificate transfer")
		}

		events, err := models.ListCertificateEventsForEdition(ctx, res.Edition.ID)
		if err != nil {
			t.Fatalf("ListCertificateEventsForEdition: %v", err)
		}
		if len(events) != 2 || events[1].Type != models.CertificateEventTransferred {
			t.Fatalf("expected minted+transferred provenance, got %+v", events)
		}
		if events[1].ToAddr != token.Wallet.Address {
			t.Fatalf("transferred event points at %s, wallet is %s", events[1].ToAddr, token.Wallet.Address)
		}

		// A declined offer must park the edition back in redeemed, not sold.
		created2, err := workflow.CreateTransfer(ctx, sender.ID, qr, "recipient@test.local")
		if err != nil || created2.Outcome != workflow.OutcomeTransferCreated {
			t.Fatalf("second create: outcome=%v err=%v", created2, err)
		}
		res2, err := workflow.RejectTransfer(ctx, recipient.ID, created2.Transfer.Token)
		if err != nil || res2.Outcome != workflow.OutcomeTransferRejected {
			t.Fatalf("reject: outcome=%v err=%v", res2, err)
		}
		if res2.Edition.Status != models.EditionStatusRedeemed {
			t.Fatalf("redeemed edition demoted to %s on reject", res2.Edition.Status)
		}
	})

	t.Run("VerifyResponseIsCached", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		r := gin.New()
		r.GET("/verify/:code", handlers.VerifyEdition)

		qr := editions[1].QrCode
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/verify/"+qr, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("verify returned %d: %s", w.Code, w.Body.String())
		}

		var cached map[string]any
		exists, err := config.GetRedisObject("verify:"+qr, &cached)
		if err != nil || !exists {
			t.Fatalf("verify response not cached: exists=%v err=%v", exists, err)
		}
		if authentic, _ := cached["authentic"].(bool); !authentic {
			t.Fatalf("cached verify document marks the edition inauthentic: %+v", cached)
		}
		if _, ok := cached["certificate"]; !ok {
			t.Fatalf("cached verify document is missing provenance: %+v", cached)
		}
	})

	t.Run("DispatcherDrainsOutbox", func(t *testing.T) {
		var pending int64
		if err := db.Model(&models.NotificationRecord{}).
			Where("publish_status = ?", models.OutboxPublishStatusPending).
			Count(&pending).Error; err != nil {
			t.Fatalf("count pending: %v", err)
		}
		if pending == 0 {
			t.Fatal("expected pending notifications from the lifecycle above")
		}

		dispatcherCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		dispatcher := workflow.NewNotificationDispatcher(db, config.GetLogger())
		dispatcher.PollInterval = 100 * time.Millisecond
		go dispatcher.Run(dispatcherCtx)

		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			var remaining int64
			if err := db.Model(&models.NotificationRecord{}).
				Where("publish_status <> ?", models.OutboxPublishStatusSent).
				Count(&remaining).Error; err != nil {
				t.Fatalf("count remaining: %v", err)
			}
			if remaining == 0 {
				return
			}
			time.Sleep(200 * time.Millisecond)
		}
		t.Fatal("dispatcher did not drain the outbox in time")
	})
}

func mustCreateUser(t *testing.T, ctx context.Context, name, email, role string) *models.User {
	t.Helper()
	user, err := models.CreateUser(ctx, &models.NewUser{
		Name:     name,
		Email:    email,
		Password: "password123",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return user
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("editions-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("editions-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=editions_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
