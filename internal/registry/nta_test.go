package registry

import (
	"context"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

const ntaResponse = `<?xml version="1.0" encoding="UTF-8"?>
<announcement>
  <lastUpdateDate>2025-03-14</lastUpdateDate>
  <count>1</count>
  <corporation>
    <sequenceNumber>1</sequenceNumber>
    <registratedNumber>T1234567890123</registratedNumber>
    <process>01</process>
    <name> 株式会社ローソン </name>
    <kana></kana>
  </corporation>
</announcement>`

var _ = Describe("NTAClient", func() {
	var (
		server *ghttp.Server
		client *NTAClient
		name   string
		err    error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		client, err = NewNTAClient(server.URL()+"/", "app-id")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		name, err = client.FetchIssuerName(context.Background(), "T1234567890123")
	})

	When("the issuer exists", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/1/num", "history=0&id=app-id&number=T1234567890123&type=21"),
				ghttp.RespondWith(http.StatusOK, ntaResponse),
			))
		})

		It("should return the first name element", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("株式会社ローソン"))
		})
	})

	When("the number is given without its T prefix", func() {
		BeforeEach(func() {
			verifyQuery := ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/1/num", "history=0&id=app-id&number=T1234567890123&type=21"),
				ghttp.RespondWith(http.StatusOK, ntaResponse),
			)
			server.AppendHandlers(verifyQuery, verifyQuery)
		})

		JustBeforeEach(func() {
			name, err = client.FetchIssuerName(context.Background(), "1234567890123")
		})

		It("should send the prefixed number", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("株式会社ローソン"))
			Expect(server.ReceivedRequests()).To(HaveLen(2))
		})
	})

	When("the response carries no name", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `<announcement><count>0</count></announcement>`))
		})

		It("should report not found", func() {
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	When("the API answers 404", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, ""))
		})

		It("should report not found", func() {
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	When("the API fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusBadRequest, "invalid id"))
		})

		It("should return the status and body", func() {
			Expect(err).To(MatchError(ContainSubstring("status 400")))
			Expect(err).To(MatchError(ContainSubstring("invalid id")))
		})
	})

	When("the XML is malformed", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `<announcement><name>unterminated`))
		})

		It("should return a decode error", func() {
			Expect(err).To(MatchError(ContainSubstring("decoding NTA")))
		})
	})
})

var _ = Describe("NewNTAClient", func() {
	It("should require an application id", func() {
		_, err := NewNTAClient("", "")
		Expect(err).To(HaveOccurred())
	})

	It("should default the base URL", func() {
		c, err := NewNTAClient("", "app-id")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.baseURL).To(Equal(DefaultNTABaseURL))
	})
})

var _ = Describe("firstName", func() {
	It("should ignore other elements before name", func() {
		n, err := firstName(strings.NewReader(`<a><kana>ローソン</kana><b><name>ローソン</name></b><name>second</name></a>`))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal("ローソン"))
	})
})
