package extraction

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractDate", func() {
	var extractor *Extractor

	BeforeEach(func() {
		extractor = NewWithClock(fixedClock{now: time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)})
	})

	extract := func(text string) string {
		return extractor.ExtractDate(text, SplitLines(text))
	}

	DescribeTable("reading dates",
		func(text, expected string) {
			Expect(extract(text)).To(Equal(expected))
		},
		Entry("calendar words with time", "2024年5月1日 12:30", "2024-05-01"),
		Entry("calendar words with weekday", "2024年 10月 6日(日) 14:02", "2024-10-06"),
		Entry("slashes with time", "2024/10/06 14:02", "2024-10-06"),
		Entry("odd separators with time", "2024-7.9 店 08:15", "2024-07-09"),
		Entry("garbled separator", "2024/10706 14:02", "2024-10-06"),
		Entry("garbled separator apart from the year", "日付 2024 10706 レジ 14:02", "2024-10-06"),
		Entry("garbled year uses the clock", "5 生 10 月 8H( 水 ) 13:44", "2025-10-08"),
		Entry("slashes without time", "2023/12/25", "2023-12-25"),
		Entry("calendar words without time", "2023年 4月 1日", "2023-04-01"),
		Entry("Reiwa era", "R5.4.1", "2023-04-01"),
		Entry("Reiwa era with calendar words", "R6年12月31日", "2024-12-31"),
		Entry("kanji fallback", "2024 年度 5月分 1日", "2024-05-01"),
		Entry("leap day", "2024/02/29 10:00", "2024-02-29"),
		Entry("nothing", "合計 ¥1,000", ""),
	)

	When("the time-anchored line and a plain date both exist", func() {
		It("should prefer the line with a time", func() {
			Expect(extract("2020/01/01\n2024/05/01 12:00")).To(Equal("2024-05-01"))
		})
	})

	When("a phone number shares its line with a time", func() {
		It("should skip it and fall back to the plain date", func() {
			Expect(extract("TEL 0463-12-3456 10:00\n2024/05/01")).To(Equal("2024-05-01"))
		})
	})

	When("the garbled separator gives an impossible month", func() {
		It("should not return a date", func() {
			Expect(extract("2024/13706 14:02")).To(Equal(""))
		})
	})

	When("the date does not exist on the calendar", func() {
		It("should not return a date", func() {
			Expect(extract("2023/02/30")).To(Equal(""))
		})
	})

	When("the Reiwa year would pass 2099", func() {
		It("should not return a date", func() {
			Expect(extract("R99.1.1")).To(Equal(""))
		})
	})

	When("the first match is invalid but a later one is not", func() {
		It("should take the later one", func() {
			Expect(extract("2023/13/01\n2023/11/01")).To(Equal("2023-11-01"))
		})
	})
})

var _ = Describe("canonicalDate", func() {
	DescribeTable("validating dates",
		func(y, m, d int, expected string, ok bool) {
			v, valid := canonicalDate(y, m, d)
			Expect(valid).To(Equal(ok))
			Expect(v).To(Equal(expected))
		},
		Entry("padded", 2024, 5, 1, "2024-05-01", true),
		Entry("lower year bound", 1900, 1, 1, "1900-01-01", true),
		Entry("upper year bound", 2099, 12, 31, "2099-12-31", true),
		Entry("year too small", 1899, 12, 31, "", false),
		Entry("year too large", 2100, 1, 1, "", false),
		Entry("month zero", 2024, 0, 1, "", false),
		Entry("day 32", 2024, 1, 32, "", false),
		Entry("not a leap year", 2023, 2, 29, "", false),
	)
})
